package ai

import (
	"fmt"
	"strings"
)

// systemPrompt 是法律助手的基础设定。
const systemPrompt = `You are a legal research assistant for US law practitioners.
Answer precisely and cite the statutes, regulations or cases you rely on when you can.
Say plainly when a question needs jurisdiction-specific advice from a licensed attorney.
Never invent citations.`

// Turn is one earlier exchange replayed as conversation context.
type Turn struct {
	Question string
	Answer   string
}

// buildSystemPrompt 在基础设定后附加用户提供的补充上下文。
func buildSystemPrompt(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return systemPrompt
	}
	return fmt.Sprintf("%s\n\nAdditional context supplied by the user:\n%s", systemPrompt, extra)
}
