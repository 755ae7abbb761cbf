package acestep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret")
}

func TestReleaseTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/release_task" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth = %q", got)
		}
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		if p["prompt"] != "rock" || p["task_type"] != nil {
			t.Errorf("payload = %v", p)
		}
		w.Write([]byte(`{"data":{"task_id":"t-1"},"code":200}`))
	})

	id, err := c.ReleaseTask(context.Background(), Payload{Prompt: "rock", BatchSize: 1})
	if err != nil || id != "t-1" {
		t.Fatalf("ReleaseTask = %q, %v", id, err)
	}
}

func TestReleaseTaskAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":500,"error":"out of memory"}`))
	})
	_, err := c.ReleaseTask(context.Background(), Payload{})
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("err = %v", err)
	}
}

func TestReleaseTaskHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad path", http.StatusBadRequest)
	})
	_, err := c.ReleaseTask(context.Background(), Payload{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 400: bad path") {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryResult(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  string
		results int
		err     error
	}{
		{"running", `{"data":[{"task_id":"t","status":0}]}`, StatusProcessing, 0, nil},
		{"empty", `{"data":[]}`, StatusProcessing, 0, nil},
		{"failed", `{"data":[{"task_id":"t","status":2}]}`, StatusError, 0, nil},
		{"done", `{"data":[{"task_id":"t","status":1,"result":"[{\"file\":\"/v1/audio?path=a.mp3\",\"metas\":{\"bpm\":90}},{\"file\":\"/v1/audio?path=b.mp3\"}]"}]}`, StatusDone, 2, nil},
		{"done without files", `{"data":[{"task_id":"t","status":1,"result":"[]"}]}`, "", 0, ErrNoResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string][]string
				json.NewDecoder(r.Body).Decode(&body)
				if len(body["task_id_list"]) != 1 || body["task_id_list"][0] != "t" {
					t.Errorf("body = %v", body)
				}
				w.Write([]byte(tt.body))
			})
			task, err := c.QueryResult(context.Background(), "t")
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("QueryResult: %v", err)
			}
			if task.Status != tt.status || len(task.Results) != tt.results {
				t.Errorf("task = %+v", task)
			}
		})
	}
}

func TestAudioBytes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio" || r.URL.Query().Get("path") != "/data/a.mp3" {
			t.Errorf("url = %s", r.URL)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF"))
	})
	data, ct, err := c.AudioBytes(context.Background(), "/v1/audio?path=%2Fdata%2Fa.mp3")
	if err != nil || string(data) != "RIFF" || ct != "audio/wav" {
		t.Fatalf("AudioBytes = %q, %q, %v", data, ct, err)
	}
}

func TestHealthAndFormatInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"ok"}`))
		case "/format_input":
			w.Write([]byte(`{"data":{"duration":93.5}}`))
		}
	})
	h, err := c.Health(context.Background())
	if err != nil || h["status"] != "ok" {
		t.Fatalf("Health = %v, %v", h, err)
	}
	out, err := c.FormatInput(context.Background(), "[Verse]")
	if err != nil {
		t.Fatalf("FormatInput: %v", err)
	}
	if data, ok := out["data"].(map[string]any); !ok || data["duration"] != 93.5 {
		t.Errorf("FormatInput = %v", out)
	}
}

func TestWaitForHealthy(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.WaitForHealthy(ctx, 5*time.Millisecond); err != nil {
		t.Fatalf("WaitForHealthy: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestResolvePath(t *testing.T) {
	tests := map[string]string{
		"/v1/audio?path=%2Fdata%2Fout%2F0.mp3": "/data/out/0.mp3",
		"/tmp/wrangler/abc.wav":                "/tmp/wrangler/abc.wav",
		"/v1/audio?other=1":                    "/v1/audio?other=1",
	}
	for in, want := range tests {
		if got := ResolvePath(in); got != want {
			t.Errorf("ResolvePath(%q) = %q, want %q", in, got, want)
		}
	}
}
