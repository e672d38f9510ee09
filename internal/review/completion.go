package review

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"interactive-openai-proxy/pkg/models"
	"interactive-openai-proxy/pkg/utils"
)

// Submission response types accepted by the review form.
const (
	SubmissionContent  = "content"
	SubmissionToolCall = "tool_call"
)

// Submission is the human-edited answer posted from the review form.
type Submission struct {
	Type          string
	Content       string
	ToolName      string
	ToolArguments string
}

// BuildCompletion constructs the chat-completion response for a resolved
// request. The model is echoed from the original request, falling back
// to defaultModel; usage counters are whitespace-token counts over the
// original messages and the submitted answer. Tool arguments are carried
// verbatim as a raw string and never re-validated as JSON.
func BuildCompletion(id string, original json.RawMessage, sub Submission, defaultModel string) *models.ChatCompletion {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Content interface{} `json:"content"`
		} `json:"messages"`
	}
	// Best effort: the payload is opaque JSON and may lack any of these
	// fields, in which case the zero values apply.
	_ = json.Unmarshal(original, &req)

	promptTokens := 0
	for _, m := range req.Messages {
		if text, ok := m.Content.(string); ok {
			promptTokens += utils.CountTokens(text)
		}
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	var message models.Message
	completionTokens := 0
	if sub.Type == SubmissionContent {
		content := sub.Content
		message.Content = &content
		completionTokens = utils.CountTokens(content)
	} else {
		message.ToolCalls = []models.ToolCall{{
			ID:   "call_" + uuid.New().String(),
			Type: "function",
			Function: models.FunctionCall{
				Name:      sub.ToolName,
				Arguments: sub.ToolArguments,
			},
		}}
		completionTokens = utils.CountTokens(sub.ToolName) + utils.CountTokens(sub.ToolArguments)
	}

	return &models.ChatCompletion{
		ID:      "chatcmpl-" + id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.Choice{{
			Index:        0,
			Message:      message,
			FinishReason: "stop",
		}},
		Usage: models.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}
