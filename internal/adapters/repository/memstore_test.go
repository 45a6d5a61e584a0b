package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func rec(score float64, offset time.Duration) model.Record {
	return model.NewRecord(score, t0.Add(offset))
}

// consistencyError reports the first team whose leaderboard entry differs from BestOf over its history.
func consistencyError(snap model.Snapshot) error {
	if len(snap.Leaderboard) != len(snap.History) {
		return fmt.Errorf("leaderboard has %d teams, history has %d", len(snap.Leaderboard), len(snap.History))
	}
	for team, recs := range snap.History {
		best, ok := ranking.BestOf(recs)
		if !ok {
			return fmt.Errorf("team %s has empty history", team)
		}
		if got := snap.Leaderboard[team]; got != best {
			return fmt.Errorf("team %s: leaderboard %+v, best of history %+v", team, got, best)
		}
	}
	return nil
}

func assertConsistent(t *testing.T, snap model.Snapshot) {
	t.Helper()
	if err := consistencyError(snap); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	best, err := store.Admit(ctx, "alpha", rec(85.5, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Score != 85.5 {
		t.Errorf("expected best 85.5, got %f", best.Score)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	got, err := store.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != rec(85.5, 0) {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := store.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.Admit(ctx, "", rec(1, 0)); !errors.Is(err, ErrEmptyTeam) {
		t.Errorf("expected ErrEmptyTeam, got %v", err)
	}
}

func TestMemoryStore_Regression(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Admit(ctx, "alpha", rec(50, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := store.Snapshot(ctx)

	best, err := store.Admit(ctx, "alpha", rec(40, time.Minute))
	if !errors.Is(err, ErrRegression) {
		t.Fatalf("expected ErrRegression, got %v", err)
	}
	if best != rec(50, 0) {
		t.Errorf("expected current best to be returned, got %+v", best)
	}

	after := store.Snapshot(ctx)
	if len(after.History["alpha"]) != len(before.History["alpha"]) {
		t.Error("rejected record must not be appended")
	}
	if after.Version != before.Version {
		t.Errorf("rejected record must not bump version: %d -> %d", before.Version, after.Version)
	}

	if _, err := store.Admit(ctx, "alpha", rec(90, 2*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := store.Get(ctx, "alpha")
	if got.Score != 90 {
		t.Errorf("expected score 90, got %f", got.Score)
	}
}

func TestMemoryStore_TieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Admit(ctx, "A", rec(10, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Equal score, later time ranks below.
	if _, err := store.Admit(ctx, "A", rec(10, time.Second)); !errors.Is(err, ErrRegression) {
		t.Fatalf("expected ErrRegression for later equal score, got %v", err)
	}

	// Equal score, equal time is not below; it is admitted.
	if _, err := store.Admit(ctx, "A", rec(10, 0)); err != nil {
		t.Fatalf("expected identical record to be admitted, got %v", err)
	}

	// Equal score, earlier time ranks above and takes the entry.
	if _, err := store.Admit(ctx, "A", rec(10, -time.Second)); err != nil {
		t.Fatalf("expected earlier equal score to be admitted, got %v", err)
	}
	got, _ := store.Get(ctx, "A")
	if got != rec(10, -time.Second) {
		t.Errorf("expected earlier record to be best, got %+v", got)
	}
	assertConsistent(t, store.Snapshot(ctx))
}

func TestMemoryStore_AppendKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if !store.Append(ctx, "alpha", rec(5, 0)) {
		t.Error("first append should set the best")
	}
	if store.Append(ctx, "alpha", rec(3, time.Second)) {
		t.Error("lower append must not change the best")
	}
	if !store.Append(ctx, "alpha", rec(7, 2*time.Second)) {
		t.Error("higher append should change the best")
	}
	if store.Append(ctx, "", rec(1, 0)) {
		t.Error("empty team must be ignored")
	}

	snap := store.Snapshot(ctx)
	if n := len(snap.History["alpha"]); n != 3 {
		t.Fatalf("expected 3 history records, got %d", n)
	}
	// Arrival order is kept.
	for i, want := range []float64{5, 3, 7} {
		if snap.History["alpha"][i].Score != want {
			t.Errorf("history[%d] = %f, want %f", i, snap.History["alpha"][i].Score, want)
		}
	}
	if snap.Version != 3 {
		t.Errorf("expected version 3, got %d", snap.Version)
	}
	assertConsistent(t, snap)
}

func TestMemoryStore_SeededHistory(t *testing.T) {
	ctx := context.Background()
	seed := model.History{
		"alpha": {rec(1, 0), rec(9, time.Second), rec(4, 2*time.Second)},
		"beta":  {rec(3, 0)},
		"empty": {},
	}
	store := NewMemoryStore(WithHistory(seed))

	// Mutating the seed afterwards must not leak into the store.
	seed["alpha"][1] = rec(-1, 0)

	snap := store.Snapshot(ctx)
	assertConsistent(t, snap)
	if snap.Leaderboard["alpha"] != rec(9, time.Second) {
		t.Errorf("expected derived best 9, got %+v", snap.Leaderboard["alpha"])
	}
	if _, ok := snap.History["empty"]; ok {
		t.Error("teams without records should be dropped")
	}
	if snap.Version != 4 {
		t.Errorf("expected version to start at loaded record count 4, got %d", snap.Version)
	}
}

func TestMemoryStore_SnapshotIsDeepCopy(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(time.Hour)
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	store.Append(ctx, "alpha", rec(1, 0))

	snap := store.Snapshot(ctx)
	snap.History["alpha"][0] = rec(100, 0)
	snap.History["beta"] = []model.Record{rec(2, 0)}
	snap.Leaderboard["alpha"] = rec(100, 0)

	again := store.Snapshot(ctx)
	if again.History["alpha"][0] != rec(1, 0) {
		t.Error("snapshot history aliases store state")
	}
	if _, ok := again.History["beta"]; ok {
		t.Error("snapshot map aliases store state")
	}
	if again.Leaderboard["alpha"] != rec(1, 0) {
		t.Error("snapshot leaderboard aliases store state")
	}
	if !again.TakenAt.Equal(now) {
		t.Errorf("expected TakenAt from clock, got %v", again.TakenAt)
	}
}

func TestMemoryStore_Standings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Append(ctx, "talent1", rec(85, 0))
	store.Append(ctx, "talent2", rec(95, 0))
	store.Append(ctx, "talent3", rec(75, 0))
	store.Append(ctx, "talent4", rec(100, 0))

	rows := store.Standings(ctx)
	expectedOrder := []string{"talent4", "talent2", "talent1", "talent3"}
	if len(rows) != len(expectedOrder) {
		t.Fatalf("expected %d rows, got %d", len(expectedOrder), len(rows))
	}
	for i, team := range expectedOrder {
		if rows[i].Team != team {
			t.Errorf("position %d: expected %s, got %s", i, team, rows[i].Team)
		}
		if rows[i].Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, rows[i].Rank)
		}
	}
}

// Strictly increasing scores submitted concurrently for one team: each must be
// judged against the state at the moment it enters the critical section, so the
// final entry is the highest score no matter the completion order.
func TestMemoryStore_ConcurrentSameTeam(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const n = 200
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := store.Admit(ctx, "solo", rec(float64(score), time.Duration(score)*time.Millisecond))
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			} else if !errors.Is(err, ErrRegression) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	best, err := store.Get(ctx, "solo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Score != n {
		t.Errorf("expected final best %d, got %f", n, best.Score)
	}

	snap := store.Snapshot(ctx)
	if len(snap.History["solo"]) != admitted {
		t.Errorf("history holds %d records, %d were admitted", len(snap.History["solo"]), admitted)
	}
	// Every admitted record was a new best at admission time, so history is increasing.
	h := snap.History["solo"]
	for i := 1; i < len(h); i++ {
		if !ranking.Above(h[i], h[i-1]) && !ranking.Equal(h[i], h[i-1]) {
			t.Fatalf("history regressed at %d: %+v after %+v", i, h[i], h[i-1])
		}
	}
	assertConsistent(t, snap)
}

// Append never rejects: every record lands and the best is the maximum.
func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const n = 50
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			store.Append(ctx, "team", rec(float64(score), 0))
		}(i)
	}
	wg.Wait()

	best, _ := store.Get(ctx, "team")
	if best.Score != n {
		t.Errorf("expected best %d, got %f", n, best.Score)
	}
	snap := store.Snapshot(ctx)
	if len(snap.History["team"]) != n {
		t.Errorf("expected %d records, got %d", n, len(snap.History["team"]))
	}
	assertConsistent(t, snap)
}

func TestMemoryStore_ConcurrentReadersSeeConsistentState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const teams = 8
	const perTeam = 100
	stop := make(chan struct{})
	var readers sync.WaitGroup

	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := consistencyError(store.Snapshot(ctx)); err != nil {
					t.Error(err)
					return
				}
				_ = store.Standings(ctx)
			}
		}()
	}

	var writers sync.WaitGroup
	for tm := 0; tm < teams; tm++ {
		writers.Add(1)
		go func(id int) {
			defer writers.Done()
			team := fmt.Sprintf("team-%d", id)
			for i := 0; i < perTeam; i++ {
				_, _ = store.Admit(ctx, team, rec(float64(rand.Intn(1000)), time.Duration(i)*time.Second))
			}
		}(tm)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	snap := store.Snapshot(ctx)
	if len(snap.Leaderboard) != teams {
		t.Errorf("expected %d teams, got %d", teams, len(snap.Leaderboard))
	}
	assertConsistent(t, snap)
}
