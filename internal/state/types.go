package state

import "time"

// Run is the record of one finished run, stored as run.yaml.
type Run struct {
	ID          string    `yaml:"id"`
	Task        string    `yaml:"task"`
	Model       string    `yaml:"model"`
	Endpoint    string    `yaml:"endpoint"`
	WorkDir     string    `yaml:"work_dir"`
	StartedAt   time.Time `yaml:"started_at"`
	FinishedAt  time.Time `yaml:"finished_at"`
	Reason      string    `yaml:"reason"`
	Iterations  int       `yaml:"iterations"`
	Executions  int       `yaml:"executions"`
	LastCommand string    `yaml:"last_command,omitempty"`
	Error       string    `yaml:"error,omitempty"`
}

// Duration is the wall-clock time the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
