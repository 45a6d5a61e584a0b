package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/http/api"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/version"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "s3cret"

type errorBody struct {
	Msg string `json:"msg"`
	Ver string `json:"ver"`
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type fixedState service.State

func (s fixedState) State() service.State { return service.State(s) }

// failingDeps fails every call with an internal error.
type failingDeps struct{}

var errBoom = fmt.Errorf("%w: disk on fire at /var/lib/x", service.ErrInternal)

func (failingDeps) Submit(context.Context, service.Submission) error { return errBoom }
func (failingDeps) Standings(context.Context) ([]model.Standing, error) {
	return nil, errBoom
}
func (failingDeps) Snapshot(context.Context) (model.Snapshot, error) { return model.Snapshot{}, errBoom }
func (failingDeps) Best(context.Context, string) (model.Record, error) {
	return model.Record{}, errBoom
}

func newHandler(t *testing.T, deps api.Dependencies, opts ...api.Option) http.Handler {
	t.Helper()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"teams": 0}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return api.RequestIDMiddleware(mux)
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithSecret(testSecret),
		service.WithDataPath(filepath.Join(t.TempDir(), "history.json")),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func scoreBody(team string, score float64, at time.Time, secret string) string {
	return fmt.Sprintf(`{"team":%q,"score":%v,"time":%q,"secret":%q}`, team, score, at.Format(time.RFC3339), secret)
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

var base = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func TestSubmit(t *testing.T) {
	Convey("Given the API backed by a started service", t, func() {
		h := newHandler(t, newService(t))

		Convey("When a valid first submission is posted", func() {
			w := post(h, scoreBody("alpha", 10, base, testSecret))

			Convey("Then it should return 201 with an empty body", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the secret is wrong", func() {
			w := post(h, scoreBody("alpha", 10, base, "nope"))

			Convey("Then it should return 401 with msg and ver", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				body := decodeError(w)
				So(body.Msg, ShouldNotBeEmpty)
				So(body.Ver, ShouldEqual, version.Version)
			})
		})

		Convey("When a lower score follows a higher one", func() {
			So(post(h, scoreBody("alpha", 10, base, testSecret)).Code, ShouldEqual, http.StatusCreated)
			w := post(h, scoreBody("alpha", 9, base.Add(time.Minute), testSecret))

			Convey("Then it should return 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w).Msg, ShouldContainSubstring, "lower than current")
			})
		})

		Convey("When the body is malformed", func() {
			cases := []string{
				`{not json`,
				`{"score":1,"time":"2024-07-01T12:00:00Z","secret":"s3cret"}`,
				`{"team":"alpha","time":"2024-07-01T12:00:00Z","secret":"s3cret"}`,
				`{"team":"alpha","score":1,"secret":"s3cret"}`,
				`{"team":"alpha","score":1,"time":"2024-07-01T12:00:00Z"}`,
				`{"team":"alpha","score":1,"time":"yesterday","secret":"s3cret"}`,
				`{"team":"","score":1,"time":"2024-07-01T12:00:00Z","secret":"s3cret"}`,
				`{"team":"alpha","score":1,"time":"2024-07-01T12:00:00Z","secret":"s3cret"} junk`,
				`{"team":"alpha","score":1,"time":"2024-07-01T12:00:00Z","secret":"s3cret"}{}`,
			}

			Convey("Then every case should return 400", func() {
				for _, c := range cases {
					So(post(h, c).Code, ShouldEqual, http.StatusBadRequest)
				}
			})
		})

		Convey("When the body exceeds the size limit", func() {
			big := `{"team":"` + strings.Repeat("a", 2<<20) + `"}`
			w := post(h, big)

			Convey("Then it should return 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given the API over a failing service", t, func() {
		h := newHandler(t, failingDeps{})

		Convey("When a submission fails internally", func() {
			w := post(h, scoreBody("alpha", 10, base, testSecret))

			Convey("Then it should return 500 with the error description", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.Msg, ShouldContainSubstring, "internal")
				So(body.Ver, ShouldEqual, version.Version)
			})
		})

		Convey("When the board cannot be read", func() {
			w := get(h, "/?format=json")

			Convey("Then it should return 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestBoard(t *testing.T) {
	Convey("Given a service with scores", t, func() {
		svc := newService(t)
		utc8 := time.FixedZone("UTC+8", 8*60*60)
		h := newHandler(t, svc, api.WithPage("Ghost Hunter", 2024, utc8))

		So(post(h, scoreBody("alpha", 5, base, testSecret)).Code, ShouldEqual, http.StatusCreated)
		So(post(h, scoreBody("bravo", 8, base, testSecret)).Code, ShouldEqual, http.StatusCreated)
		So(post(h, scoreBody("<script>", 8, base.Add(-time.Hour), testSecret)).Code, ShouldEqual, http.StatusCreated)

		Convey("When JSON is requested with a query parameter", func() {
			w := get(h, "/?format=json")

			Convey("Then standings should be ranked with the earlier equal score first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var standings []model.Standing
				So(json.Unmarshal(w.Body.Bytes(), &standings), ShouldBeNil)
				So(standings, ShouldHaveLength, 3)
				So(standings[0].Team, ShouldEqual, "<script>")
				So(standings[1].Team, ShouldEqual, "bravo")
				So(standings[2].Team, ShouldEqual, "alpha")
				So(standings[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When JSON is requested with the Accept header", func() {
			w := get(h, "/", "Accept", "application/json")

			Convey("Then the response should be JSON", func() {
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			})
		})

		Convey("When the HTML page is requested", func() {
			w := get(h, "/")
			html := w.Body.String()

			Convey("Then it should render the table in the configured zone", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(html, ShouldContainSubstring, "<title>Ghost Hunter</title>")
				So(html, ShouldContainSubstring, "2024-07-01 20:00:00")
				So(html, ShouldContainSubstring, "&copy; 2024")
				So(strings.Index(html, "bravo"), ShouldBeLessThan, strings.Index(html, "alpha"))
			})

			Convey("Then team names should be escaped", func() {
				So(html, ShouldNotContainSubstring, "<td><script></td>")
				So(html, ShouldContainSubstring, "&lt;script&gt;")
			})
		})
	})

	Convey("Given an empty service", t, func() {
		h := newHandler(t, newService(t))

		Convey("Then JSON standings should be an empty array", func() {
			w := get(h, "/?format=json")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("Then the HTML page should say there are no scores", func() {
			So(get(h, "/").Body.String(), ShouldContainSubstring, "No scores yet.")
		})
	})
}

func TestHistoryAndTeam(t *testing.T) {
	Convey("Given a team with two admitted records", t, func() {
		h := newHandler(t, newService(t))
		So(post(h, scoreBody("alpha", 3, base, testSecret)).Code, ShouldEqual, http.StatusCreated)
		So(post(h, scoreBody("alpha", 7, base.Add(time.Minute), testSecret)).Code, ShouldEqual, http.StatusCreated)

		Convey("When reading the history", func() {
			w := get(h, "/history")

			Convey("Then every record and the best should be present", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					History     model.History     `json:"history"`
					Leaderboard model.Leaderboard `json:"leaderboard"`
					Version     uint64            `json:"version"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.History["alpha"], ShouldHaveLength, 2)
				So(body.Leaderboard["alpha"].Score, ShouldEqual, 7)
				So(body.Version, ShouldEqual, 2)
			})
		})

		Convey("When reading the team", func() {
			w := get(h, "/teams/alpha")

			Convey("Then its best record should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Team  string  `json:"team"`
					Score float64 `json:"score"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Team, ShouldEqual, "alpha")
				So(body.Score, ShouldEqual, 7)
			})
		})

		Convey("When reading an unknown team", func() {
			w := get(h, "/teams/zulu")

			Convey("Then it should return 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).Ver, ShouldEqual, version.Version)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		svc := newService(t)

		Convey("When the process is running", func() {
			h := newHandler(t, svc, api.WithStateProvider(fixedState(service.StateRunning)))
			w := get(h, "/healthz")

			Convey("Then health should be ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"state":"running"`)
			})
		})

		Convey("When the process is shutting down", func() {
			h := newHandler(t, svc, api.WithStateProvider(fixedState(service.StateShuttingDown)))
			w := get(h, "/healthz")

			Convey("Then health should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, `"state":"shutting_down"`)
			})
		})

		Convey("When reading stats and metrics", func() {
			h := newHandler(t, svc)
			So(post(h, scoreBody("alpha", 1, base, testSecret)).Code, ShouldEqual, http.StatusCreated)

			Convey("Then stats should be JSON", func() {
				w := get(h, "/stats")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"teams"`)
			})

			Convey("Then metrics should include submissions and requests", func() {
				w := get(h, "/metrics")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "scoreboard_submissions_total")
				So(w.Body.String(), ShouldContainSubstring, "scoreboard_http_requests_total")
			})
		})

		Convey("When a path or method is unknown", func() {
			h := newHandler(t, svc)

			Convey("Then unknown paths return 404", func() {
				So(get(h, "/nope").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then unsupported methods on / return 405", func() {
				req := httptest.NewRequest(http.MethodDelete, "/", http.NoBody)
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = api.RequestIDFrom(r.Context())
		}))

		Convey("When the client sends an id", func() {
			w := get(h, "/", api.RequestIDHeader, "abc-123")

			Convey("Then it is reused and echoed", func() {
				So(seen, ShouldEqual, "abc-123")
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When the client sends none", func() {
			w := get(h, "/")

			Convey("Then one is generated", func() {
				So(seen, ShouldNotBeEmpty)
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
			})
		})
	})

	Convey("Outside a request there is no id", t, func() {
		So(api.RequestIDFrom(context.Background()), ShouldBeEmpty)
	})
}
