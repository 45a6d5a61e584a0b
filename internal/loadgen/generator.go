package loadgen

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scoreboard/internal/domain/model"
)

// generate builds cfg.Submissions submissions for each of cfg.Teams fresh teams,
// interleaved so concurrent workers contend on the same teams.
func generate(cfg Config, now time.Time) []Submission {
	teams := make([]string, cfg.Teams)
	for i := range teams {
		teams[i] = "load-" + uuid.NewString()[:8]
	}

	subs := make([]Submission, 0, cfg.Teams*cfg.Submissions)
	for i := 0; i < cfg.Submissions; i++ {
		for _, team := range teams {
			subs = append(subs, newSubmission(team, cfg.Secret, now))
		}
	}
	return subs
}

func newSubmission(team, secret string, now time.Time) Submission {
	// Scores on a coarse grid so equal scores, and the time tie-break, actually occur.
	score := math.Round(rand.Float64()*100) / 4
	at := now.Add(-time.Duration(rand.IntN(3600)) * time.Second).UTC().Truncate(time.Second)
	return Submission{
		Team:   team,
		Score:  score,
		Time:   at.Format(time.RFC3339),
		Secret: secret,
		record: model.NewRecord(score, at),
	}
}
