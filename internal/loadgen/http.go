package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// client wraps http.Client with the service base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

func (c *client) submit(ctx context.Context, sub Submission) Outcome {
	body, err := json.Marshal(sub)
	if err != nil {
		return OutcomeFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		return OutcomeCreated
	case http.StatusConflict:
		return OutcomeConflict
	default:
		return OutcomeFailed
	}
}

// submitAll posts every submission through a pool of workers and returns
// the outcome of each, index-aligned with subs.
func submitAll(ctx context.Context, c *client, subs []Submission, workers int, log logger.Logger) []Outcome {
	outcomes := make([]Outcome, len(subs))
	if workers < 1 {
		workers = 1
	}

	var submitted atomic.Int64
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = c.submit(ctx, subs[i])
				if n := submitted.Add(1); n%1000 == 0 {
					log.Debug(ctx, "progress", logger.Int64("submitted", n), logger.Int("total", len(subs)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	return outcomes
}

// serverState is what verification reads back.
type serverState struct {
	History     model.History
	Leaderboard model.Leaderboard
	Standings   []model.Standing
}

func (c *client) fetchState(ctx context.Context) (serverState, error) {
	var st serverState
	var hist struct {
		History     model.History     `json:"history"`
		Leaderboard model.Leaderboard `json:"leaderboard"`
	}
	if err := c.get(ctx, "/history", &hist); err != nil {
		return st, err
	}
	if err := c.get(ctx, "/?format=json", &st.Standings); err != nil {
		return st, err
	}
	st.History = hist.History
	st.Leaderboard = hist.Leaderboard
	return st, nil
}
