// Package acestep is a client for the ACE-Step v1.5 REST API.
package acestep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/schollz/gowrangler/internal/httpc"
)

// Per-call timeouts. Audio downloads get the most room.
const (
	SubmitTimeout = 30 * time.Second
	PollTimeout   = 10 * time.Second
	AudioTimeout  = 60 * time.Second
)

// Task states after normalizing the numeric upstream codes.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// ErrNoResults is returned when a finished task carries no audio.
var ErrNoResults = errors.New("no results returned")

// Client communicates with the ACE-Step REST API.
type Client struct {
	apiURL string
	apiKey string

	submit *http.Client
	poll   *http.Client
	audio  *http.Client
}

// NewClient creates an ACE-Step API client.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		submit: httpc.NewClient(SubmitTimeout),
		poll:   httpc.NewClient(PollTimeout),
		audio:  httpc.NewClient(AudioTimeout),
	}
}

// URL returns the API root.
func (c *Client) URL() string { return c.apiURL }

// Payload is the body of /release_task.
type Payload struct {
	Prompt         string  `json:"prompt"`
	Lyrics         string  `json:"lyrics"`
	AudioDuration  float64 `json:"audio_duration"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Shift          float64 `json:"shift"`
	InferenceSteps int     `json:"inference_steps"`
	BatchSize      int     `json:"batch_size"`
	UseRandomSeed  bool    `json:"use_random_seed"`
	Seed           int     `json:"seed"`
	InferMethod    string  `json:"infer_method"`
	AudioFormat    string  `json:"audio_format"`

	AudioGuidanceScale *float64 `json:"audio_guidance_scale,omitempty"`

	SampleQuery   string `json:"sample_query,omitempty"`
	VocalLanguage string `json:"vocal_language,omitempty"`

	Model string `json:"model,omitempty"`

	TaskType           string   `json:"task_type,omitempty"`
	SrcAudioPath       string   `json:"src_audio_path,omitempty"`
	AudioCoverStrength *float64 `json:"audio_cover_strength,omitempty"`
	RepaintingStart    *float64 `json:"repainting_start,omitempty"`
	RepaintingEnd      *float64 `json:"repainting_end,omitempty"`
}

// Result is one generated file. File is an API-relative audio ref such as
// "/v1/audio?path=...".
type Result struct {
	File  string         `json:"file"`
	Metas map[string]any `json:"metas"`
}

// Task is a normalized /query_result entry.
type Task struct {
	Status  string
	Results []Result
}

type releaseResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data []taskResult `json:"data"`
	Code int          `json:"code"`
}

type taskResult struct {
	TaskID string `json:"task_id"`
	Status int    `json:"status"` // 0=running, 1=success, 2=failed
	Result string `json:"result"` // JSON string with file info
}

// ReleaseTask submits a generation task and returns its id.
func (c *Client) ReleaseTask(ctx context.Context, p Payload) (string, error) {
	var out releaseResp
	if err := c.postJSON(ctx, c.submit, "/release_task", p, &out); err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	if out.Code != 0 && out.Code != http.StatusOK {
		return "", fmt.Errorf("API error (code %d): %s", out.Code, out.Error)
	}
	if out.Data.TaskID == "" {
		return "", errors.New("submit task: empty task id")
	}
	return out.Data.TaskID, nil
}

// QueryResult polls one task.
func (c *Client) QueryResult(ctx context.Context, taskID string) (*Task, error) {
	body := map[string][]string{"task_id_list": {taskID}}
	var out queryResp
	if err := c.postJSON(ctx, c.poll, "/query_result", body, &out); err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	if len(out.Data) == 0 {
		return &Task{Status: StatusProcessing}, nil
	}

	entry := out.Data[0]
	switch entry.Status {
	case 0:
		return &Task{Status: StatusProcessing}, nil
	case 1:
		var items []Result
		if err := json.Unmarshal([]byte(entry.Result), &items); err != nil {
			return nil, fmt.Errorf("parse result items: %w", err)
		}
		if len(items) == 0 || items[0].File == "" {
			return nil, ErrNoResults
		}
		return &Task{Status: StatusDone, Results: items}, nil
	default:
		return &Task{Status: StatusError}, nil
	}
}

// AudioBytes downloads an audio ref and returns its bytes and content type.
func (c *Client) AudioBytes(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL+ref, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.audio.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, "", fmt.Errorf("download audio: %w", err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return data, ct, nil
}

// Health returns the /health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return out, nil
}

// FormatInput runs the LM formatter over lyrics. The response is returned
// as-is since its layout varies between API versions.
func (c *Client) FormatInput(ctx context.Context, lyrics string) (map[string]any, error) {
	body := map[string]string{"prompt": "", "lyrics": lyrics}
	out := map[string]any{}
	if err := c.postJSON(ctx, c.submit, "/format_input", body, &out); err != nil {
		return nil, fmt.Errorf("format input: %w", err)
	}
	return out, nil
}

// WaitForHealthy blocks until the API answers health checks or ctx ends.
func (c *Client) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, hc *http.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(msg)) == 0 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
}
