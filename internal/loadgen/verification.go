package loadgen

import (
	"fmt"
	"sort"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
)

// verify checks the server state against what was sent. A team with a failed
// request is skipped: the request may or may not have been applied.
func verify(subs []Submission, outcomes []Outcome, st serverState, report *Report) {
	type teamRun struct {
		sent    []model.Record
		created int
		failed  bool
	}
	runs := map[string]*teamRun{}
	for i, sub := range subs {
		run := runs[sub.Team]
		if run == nil {
			run = &teamRun{}
			runs[sub.Team] = run
		}
		run.sent = append(run.sent, sub.record)
		switch outcomes[i] {
		case OutcomeCreated:
			run.created++
		case OutcomeFailed:
			run.failed = true
		}
	}

	teams := make([]string, 0, len(runs))
	for team := range runs {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	report.Teams = len(teams)

	for _, team := range teams {
		run := runs[team]
		if run.failed {
			report.Skipped++
			continue
		}
		before := len(report.Mismatches)
		report.Mismatches = append(report.Mismatches, checkTeam(team, run.sent, run.created, st)...)
		if len(report.Mismatches) == before {
			report.Verified++
		}
	}

	report.Mismatches = append(report.Mismatches, checkOrder(st.Standings)...)
}

func checkTeam(team string, sent []model.Record, created int, st serverState) []string {
	var problems []string

	want, _ := ranking.BestOf(sent)
	got, ok := st.Leaderboard[team]
	switch {
	case !ok:
		problems = append(problems, fmt.Sprintf("%s: missing from leaderboard", team))
	case !ranking.Equal(got, want):
		problems = append(problems, fmt.Sprintf("%s: best is %v@%s, want %v@%s",
			team, got.Score, got.Time.Format("15:04:05"), want.Score, want.Time.Format("15:04:05")))
	}

	history := st.History[team]
	if len(history) != created {
		problems = append(problems, fmt.Sprintf("%s: history has %d records, %d were admitted", team, len(history), created))
	}
	for i := 1; i < len(history); i++ {
		if ranking.Below(history[i], history[i-1]) {
			problems = append(problems, fmt.Sprintf("%s: history record %d ranks below record %d", team, i, i-1))
			break
		}
	}
	return problems
}

func checkOrder(standings []model.Standing) []string {
	for i := 1; i < len(standings); i++ {
		if ranking.Above(standings[i].Record, standings[i-1].Record) {
			return []string{fmt.Sprintf("standings out of order at position %d (%s above %s)",
				i, standings[i].Team, standings[i-1].Team)}
		}
	}
	return nil
}
