// Package ai answers chat questions with an Ark hosted model instead of the
// remote inference API.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/lexdesk/backend/internal/config"
	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
)

// modelConfidence 是模型回复的固定置信度；模型本身不给出该值。
const modelConfidence = 0.9

// Service encapsulates the LLM chat chain.
type Service struct {
	historyLimit int
	chain        compose.Runnable[map[string]any, *schema.Message]
	log          zerolog.Logger
}

// NewService creates the chain on top of the configured Ark model.
func NewService(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.HistoryLimit, logger)
}

// NewServiceWithModel builds the chain on an arbitrary chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, historyLimit int, logger zerolog.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = 1
	}
	return &Service{
		historyLimit: historyLimit,
		chain:        runnable,
		log:          logger.With().Str("component", "ai").Logger(),
	}, nil
}

// Chat answers in using history, oldest first, as prior turns.
func (s *Service) Chat(ctx context.Context, in legal.ChatInput, history []Turn) (legal.ChatReply, error) {
	input := map[string]any{
		"system":  buildSystemPrompt(in.Context),
		"history": s.buildHistoryMessages(history),
		"query":   in.Message,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return legal.ChatReply{}, fmt.Errorf("failed to run AI chain: %w", err)
	}

	s.log.Debug().Int("length", len(response.Content)).Msg("generated chat reply")
	return legal.ChatReply{
		Response:   strings.TrimSpace(response.Content),
		Confidence: modelConfidence,
	}, nil
}

func (s *Service) buildHistoryMessages(turns []Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > s.historyLimit {
		startIdx = len(turns) - s.historyLimit
	}

	history := make([]*schema.Message, 0, 2*(len(turns)-startIdx))
	for _, t := range turns[startIdx:] {
		if t.Question != "" {
			history = append(history, schema.UserMessage(t.Question))
		}
		if t.Answer != "" {
			history = append(history, schema.AssistantMessage(t.Answer, nil))
		}
	}
	return history
}
