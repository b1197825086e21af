package testutil

import (
	"context"
	"sync"

	"github.com/thruflo/cmdpilot/internal/executor"
	"github.com/thruflo/cmdpilot/internal/llm"
)

// ScriptedReply is one canned answer from a ScriptedClient.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedClient is an llm.Client that plays back replies in order and
// records every conversation it was sent. Once the script runs out it
// keeps returning Fallback.
type ScriptedClient struct {
	mu       sync.Mutex
	script   []ScriptedReply
	calls    [][]llm.Message
	Fallback ScriptedReply
}

// NewScriptedClient creates a client that replies with each text in turn.
func NewScriptedClient(replies ...string) *ScriptedClient {
	c := &ScriptedClient{}
	for _, r := range replies {
		c.Then(r)
	}
	return c
}

// Then queues a text reply.
func (c *ScriptedClient) Then(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, ScriptedReply{Text: text})
	return c
}

// ThenError queues a failed call.
func (c *ScriptedClient) ThenError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, ScriptedReply{Err: err})
	return c
}

// Chat implements llm.Client.
func (c *ScriptedClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := make([]llm.Message, len(messages))
	copy(sent, messages)
	c.calls = append(c.calls, sent)

	reply := c.Fallback
	if len(c.calls) <= len(c.script) {
		reply = c.script[len(c.calls)-1]
	}
	return reply.Text, reply.Err
}

// CallCount returns how many times Chat was called.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Call returns the messages sent on the i-th call (zero-based).
func (c *ScriptedClient) Call(i int) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.calls) {
		return nil
	}
	return c.calls[i]
}

// LastPrompt returns the final user message of the i-th call.
func (c *ScriptedClient) LastPrompt(i int) string {
	msgs := c.Call(i)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

// RecordingExecutor is an executor.Executor that returns canned results and
// records every command it was asked to run.
type RecordingExecutor struct {
	mu       sync.Mutex
	results  map[string]executor.Result
	commands []string
	// Fallback is returned for commands without a canned result.
	Fallback executor.Result
}

// NewRecordingExecutor creates an executor with no canned results.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{results: make(map[string]executor.Result)}
}

// On sets the result returned for command.
func (e *RecordingExecutor) On(command string, result executor.Result) *RecordingExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[command] = result
	return e
}

// Execute implements executor.Executor.
func (e *RecordingExecutor) Execute(ctx context.Context, command string) executor.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	if res, ok := e.results[command]; ok {
		return res
	}
	return e.Fallback
}

// Commands returns the commands executed so far, in order.
func (e *RecordingExecutor) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.commands))
	copy(out, e.commands)
	return out
}
