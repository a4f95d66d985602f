package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lexdesk/backend/internal/model/legal"
)

type fakeModel struct {
	seen  []*schema.Message
	reply string
	err   error
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChatBuildsPromptWithHistory(t *testing.T) {
	fm := &fakeModel{reply: "  Consideration is a bargained-for exchange.  "}
	svc, err := NewServiceWithModel(context.Background(), fm, 2, zerolog.Nop())
	require.NoError(t, err)

	history := []Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
	}
	reply, err := svc.Chat(context.Background(), legal.ChatInput{Message: "What is consideration?", Context: "contract law"}, history)
	require.NoError(t, err)

	assert.Equal(t, "Consideration is a bargained-for exchange.", reply.Response)
	assert.Equal(t, modelConfidence, reply.Confidence)

	require.Len(t, fm.seen, 6, "system + two turns + query")
	assert.Equal(t, schema.System, fm.seen[0].Role)
	assert.Contains(t, fm.seen[0].Content, "contract law")
	assert.Equal(t, "q2", fm.seen[1].Content)
	assert.Equal(t, "a3", fm.seen[4].Content)
	assert.Equal(t, "What is consideration?", fm.seen[5].Content)
}

func TestChatPropagatesModelErrors(t *testing.T) {
	svc, err := NewServiceWithModel(context.Background(), &fakeModel{err: errors.New("quota")}, 10, zerolog.Nop())
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), legal.ChatInput{Message: "hi"}, nil)
	assert.Error(t, err)
}
