package review

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"interactive-openai-proxy/pkg/models"
)

// Drafter produces a candidate completion for a pending request. It is
// satisfied by upstream.Client.
type Drafter interface {
	CreateChatCompletion(ctx context.Context, payload map[string]interface{}) (*models.ChatCompletion, error)
}

// Draft is the best-effort suggested answer that pre-fills the review
// form. The zero value is an empty draft.
type Draft struct {
	Content       string
	ToolName      string
	ToolArguments string
}

// IsToolCall reports whether the draft suggests a tool invocation.
func (d Draft) IsToolCall() bool {
	return d.ToolName != ""
}

// fetchDraft asks the upstream service for a candidate answer using the
// original request's messages, tools, and tool-choice policy. Drafting
// is strictly best effort: any failure is logged and yields an empty
// draft, never an error on the review page.
func (s *ServerState) fetchDraft(ctx context.Context, original json.RawMessage) Draft {
	if s.Drafter == nil {
		return Draft{}
	}

	var req map[string]interface{}
	if err := json.Unmarshal(original, &req); err != nil {
		return Draft{}
	}

	payload := map[string]interface{}{"model": s.DraftModel}
	for _, key := range []string{"messages", "tools", "tool_choice"} {
		if v, ok := req[key]; ok {
			payload[key] = v
		}
	}

	completion, err := s.Drafter.CreateChatCompletion(ctx, payload)
	if err != nil {
		log.Printf("draft call failed: %v", err)
		return Draft{}
	}
	if len(completion.Choices) == 0 {
		return Draft{}
	}

	message := completion.Choices[0].Message
	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0]
		return Draft{
			ToolName:      call.Function.Name,
			ToolArguments: call.Function.Arguments,
		}
	}
	if message.Content != nil {
		return Draft{Content: strings.TrimSpace(*message.Content)}
	}
	return Draft{}
}
