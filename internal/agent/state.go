package agent

import (
	"github.com/google/uuid"
)

// State is everything one run carries between rounds. It is created when a
// run starts and dropped when it ends; nothing outlives the process.
type State struct {
	RunID string
	// Task is the text sent as the next user turn.
	Task       string
	Iteration  int
	Executions int
	// LastCommand is the most recent parsed command, executed or not.
	LastCommand string
	History     *History
}

// NewState creates the state for a run. An empty runID gets a fresh one.
func NewState(runID, task string, historySize int) *State {
	if runID == "" {
		runID = NewRunID()
	}
	return &State{
		RunID:   runID,
		Task:    task,
		History: NewHistory(historySize),
	}
}

// NewRunID returns a time-ordered identifier for a run.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
