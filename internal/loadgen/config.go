// Package loadgen drives a running scoreboard with concurrent submissions and
// checks that the resulting leaderboard and history are consistent with what
// was sent.
package loadgen

import (
	"runtime"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Secret      string        // Shared submission secret
	Teams       int           // Number of distinct teams
	Submissions int           // Submissions per team
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
}

// DefaultConfig returns the settings used when flags are left unset.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://127.0.0.1:8080",
		Teams:       20,
		Submissions: 50,
		Workers:     runtime.NumCPU() * 2,
		Timeout:     10 * time.Second,
	}
}

// Submission is one generated POST / body.
type Submission struct {
	Team   string  `json:"team"`
	Score  float64 `json:"score"`
	Time   string  `json:"time"`
	Secret string  `json:"secret"`

	record model.Record
}

// Outcome classifies one submission's response.
type Outcome int

// Possible outcomes of a submission.
const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeConflict
)

// Report summarises a run.
type Report struct {
	Submitted  int
	Created    int
	Conflicts  int
	Failed     int
	Teams      int
	Verified   int
	Skipped    int
	Mismatches []string
	Duration   time.Duration
}

// OK reports whether every checked team matched.
func (r Report) OK() bool { return len(r.Mismatches) == 0 }
