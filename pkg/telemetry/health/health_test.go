package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if got := New(0).checkTimeout; got != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", got)
	}
	if got := New(time.Second).checkTimeout; got != time.Second {
		t.Errorf("custom timeout = %v, want 1s", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
		failed []string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   StatusReady,
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"last_build": func(context.Context) error { return nil },
				"source":     func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one fails",
			checks: map[string]CheckFunc{
				"last_build": func(context.Context) error { return errors.New("include not found") },
				"source":     func(context.Context) error { return nil },
			},
			want:   StatusDegraded,
			failed: []string{"last_build"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			want:   StatusDegraded,
			failed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("status = %q, want %q", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
			for name, r := range status.Checks {
				unhealthy := r.Status == StatusUnhealthy
				if unhealthy != slices.Contains(tt.failed, name) {
					t.Errorf("check %q status = %q (%s)", name, r.Status, r.Message)
				}
				if unhealthy && r.Message == "" {
					t.Errorf("check %q should carry a message", name)
				}
			}
		})
	}
}

func TestListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("source", func(context.Context) error { return nil })
	c.RegisterCheck("last_build", func(context.Context) error { return nil })
	c.RegisterCheck("source", func(context.Context) error { return nil })

	if got := c.ListChecks(); !slices.Equal(got, []string{"last_build", "source"}) {
		t.Errorf("ListChecks() = %v", got)
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	failing := errors.New("no build yet")
	c.RegisterCheck("last_build", func(context.Context) error { return failing })

	mux := http.NewServeMux()
	Register(mux, c, "1.0.0", "abc123", "2026-01-01")

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{"liveness", http.MethodGet, PathLive, http.StatusOK},
		{"liveness head", http.MethodHead, PathLive, http.StatusOK},
		{"readiness degraded", http.MethodGet, PathReady, http.StatusServiceUnavailable},
		{"version", http.MethodGet, PathVersion, http.StatusOK},
		{"post rejected", http.MethodPost, PathLive, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.code {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.code)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Error("HEAD should not write a body")
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathReady, nil))
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["last_build"].Message != failing.Error() {
		t.Errorf("readiness body = %+v", status)
	}

	c.RegisterCheck("last_build", func(context.Context) error { return nil })
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathReady, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness after recovery = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathVersion, nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.0.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("version body = %+v", info)
	}
}
