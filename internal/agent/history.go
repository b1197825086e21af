package agent

import "github.com/thruflo/cmdpilot/internal/llm"

// DefaultHistorySize is the number of messages kept in the window.
const DefaultHistorySize = 20

// History is a sliding window over the conversation. Once it holds limit
// messages, every append evicts from the oldest end. Order is never changed.
type History struct {
	limit    int
	messages []llm.Message
}

// NewHistory creates an empty History. A non-positive limit uses
// DefaultHistorySize.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Append adds messages in order and evicts the oldest beyond the limit.
func (h *History) Append(msgs ...llm.Message) {
	h.messages = append(h.messages, msgs...)
	if over := len(h.messages) - h.limit; over > 0 {
		kept := make([]llm.Message, h.limit)
		copy(kept, h.messages[over:])
		h.messages = kept
	}
}

// AppendExchange records one successful user/assistant exchange.
func (h *History) AppendExchange(prompt, reply string) {
	h.Append(
		llm.NewMessage(llm.RoleUser, prompt),
		llm.NewMessage(llm.RoleAssistant, reply),
	)
}

// Messages returns a copy of the window, oldest first.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// WithPrompt returns the window followed by a new user message, ready to send.
func (h *History) WithPrompt(prompt string) []llm.Message {
	out := make([]llm.Message, 0, len(h.messages)+1)
	out = append(out, h.messages...)
	return append(out, llm.NewMessage(llm.RoleUser, prompt))
}

