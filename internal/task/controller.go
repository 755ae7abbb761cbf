// Package task drives one generation job at a time: submit, poll until a
// terminal status, and expose the output view the UI should show.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/repeat"
)

// DefaultPollInterval is the status check cadence.
const DefaultPollInterval = 2 * time.Second

// Hints shown to the operator.
const (
	HintFailed    = "Generation failed. Check the backend logs."
	HintNoResults = "Generation finished without results."
)

// ErrBusy is returned by Submit while a job is submitting or polling.
var ErrBusy = errors.New("a generation is already in progress")

// State is the lifecycle position of the tracked job.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateDone
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// View is what the output panel shows.
type View int

const (
	ViewIdle View = iota
	ViewGenerating
	ViewResults
	ViewWaveform
)

func (v View) String() string {
	switch v {
	case ViewIdle:
		return "idle"
	case ViewGenerating:
		return "generating"
	case ViewResults:
		return "results"
	case ViewWaveform:
		return "waveform"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// Backend is the part of the wrangler API the controller needs.
// *api.Client implements it.
type Backend interface {
	Generate(ctx context.Context, req api.GenerateRequest) (string, error)
	Status(ctx context.Context, taskID string) (*api.Status, error)
}

// Result is one finished clip with its download paths.
type Result struct {
	Index         int
	AudioURL      string
	AudioDownload string
	MetaDownload  string
	Meta          map[string]any
}

// Last is the most recent finished generation, kept for the rework hand-off.
type Last struct {
	AudioURL string
	Lyrics   string
}

// Completion is delivered to OnDone listeners when a job finishes.
type Completion struct {
	TaskID  string
	Request Request
	Payload api.GenerateRequest
	Results []Result
	Lyrics  string // the typed lyric sheet, sent or not
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State   State
	View    View
	TaskID  string
	Results []Result
	Hint    string
	Started time.Time
}

// Busy reports whether the trigger should be disabled.
func (s Snapshot) Busy() bool {
	return s.State == StateSubmitting || s.State == StatePolling
}

// Config configures a Controller. Zero values pick defaults.
type Config struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Controller tracks at most one generation job.
type Controller struct {
	backend  Backend
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	view    View
	taskID  string
	results []Result
	last    *Last
	hint    string
	started time.Time
	epoch   uint64
	poller  *repeat.Task

	listeners []func(Snapshot)
	done      []func(Completion)
}

// NewController returns an idle controller.
func NewController(b Backend, cfg Config) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		backend:  b,
		interval: cfg.PollInterval,
		logger:   cfg.Logger,
	}
}

// OnChange registers fn to receive every state change.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// OnDone registers fn to receive finished jobs.
func (c *Controller) OnDone(fn func(Completion)) {
	c.mu.Lock()
	c.done = append(c.done, fn)
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:   c.state,
		View:    c.view,
		TaskID:  c.taskID,
		Results: append([]Result(nil), c.results...),
		Hint:    c.hint,
		Started: c.started,
	}
}

// Busy reports whether a job is submitting or polling.
func (c *Controller) Busy() bool {
	return c.Snapshot().Busy()
}

// Last returns the cached most recent generation, or nil.
func (c *Controller) Last() *Last {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	l := *c.last
	return &l
}

// Elapsed is the running time of the current job, zero when not busy.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSubmitting && c.state != StatePolling {
		return 0
	}
	return time.Since(c.started)
}

// SetView switches the output panel. Ignored while busy.
func (c *Controller) SetView(v View) {
	c.mu.Lock()
	if c.state == StateSubmitting || c.state == StatePolling {
		c.mu.Unlock()
		return
	}
	c.view = v
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetHint replaces the operator hint. Used for input rejections that never
// reach the backend.
func (c *Controller) SetHint(h string) {
	c.mu.Lock()
	c.hint = h
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Submit sends req and starts polling. It returns once the backend has
// accepted or rejected the job; completion is reported through OnDone.
// A rejected submission never enters polling.
func (c *Controller) Submit(ctx context.Context, req Request) error {
	payload, err := Payload(req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateSubmitting || c.state == StatePolling {
		c.mu.Unlock()
		return ErrBusy
	}
	c.epoch++
	epoch := c.epoch
	prev := c.poller
	c.poller = nil
	c.state = StateSubmitting
	c.view = ViewGenerating
	c.taskID = ""
	c.results = nil
	c.hint = ""
	c.started = time.Now()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	prev.Stop()
	c.notify(snap)

	id, err := c.backend.Generate(ctx, payload)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state = StateError
		c.view = ViewIdle
		c.hint = "Error: " + err.Error()
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn("submit failed", "error", err)
		c.notify(snap)
		return fmt.Errorf("submit: %w", err)
	}

	c.taskID = id
	c.state = StatePolling
	c.poller = repeat.Start(context.WithoutCancel(ctx), c.interval, func(ctx context.Context) bool {
		return c.poll(ctx, epoch, id, req, payload)
	})
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("task submitted", "task_id", id)
	c.notify(snap)
	return nil
}

// poll runs one status check. It returns false once the job is terminal or
// superseded.
func (c *Controller) poll(ctx context.Context, epoch uint64, id string, req Request, payload api.GenerateRequest) bool {
	st, err := c.backend.Status(ctx, id)
	if ctx.Err() != nil {
		return false
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}

	// Terminal branches drop the handle; the loop exits on its own.
	if err != nil {
		c.poller = nil
		c.state = StateError
		c.view = ViewIdle
		c.hint = "Polling error: " + err.Error()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn("poll failed", "task_id", id, "error", err)
		c.notify(snap)
		return false
	}

	switch st.Status {
	case api.StatusDone:
		if len(st.Results) == 0 {
			c.fail(id, HintNoResults)
			return false
		}
		results := make([]Result, len(st.Results))
		for i, r := range st.Results {
			results[i] = Result{
				Index:         i,
				AudioURL:      r.AudioURL,
				AudioDownload: api.DownloadPath(id, i, api.KindAudio),
				MetaDownload:  api.DownloadPath(id, i, api.KindJSON),
				Meta:          r.Meta,
			}
		}
		c.poller = nil
		c.results = results
		lyrics := draftLyrics(req)
		c.last = &Last{AudioURL: results[0].AudioURL, Lyrics: lyrics}
		c.state = StateDone
		if IsRework(req) {
			c.view = ViewWaveform
		} else {
			c.view = ViewResults
		}
		snap := c.snapshotLocked()
		done := append([]func(Completion){}, c.done...)
		c.mu.Unlock()

		c.logger.Info("task done", "task_id", id, "results", len(results))
		c.notify(snap)
		comp := Completion{TaskID: id, Request: req, Payload: payload, Results: snap.Results, Lyrics: lyrics}
		for _, fn := range done {
			fn(comp)
		}
		return false

	case api.StatusError:
		c.fail(id, HintFailed)
		return false

	default:
		c.mu.Unlock()
		return true
	}
}

// fail ends the job with hint. Called with c.mu held; releases it.
func (c *Controller) fail(id, hint string) {
	c.poller = nil
	c.state = StateError
	c.view = ViewIdle
	c.hint = hint
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.logger.Warn("task failed", "task_id", id)
	c.notify(snap)
}

// Cancel stops polling and forgets the job. Only valid while polling; the
// backend is not told. Returns whether anything was cancelled. No status
// request is issued after Cancel returns.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	if c.state != StatePolling {
		c.mu.Unlock()
		return false
	}
	c.epoch++
	p := c.poller
	c.poller = nil
	id := c.taskID
	c.state = StateCancelled
	c.view = ViewIdle
	c.taskID = ""
	c.hint = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()

	p.Stop()
	c.logger.Info("task cancelled", "task_id", id)
	c.notify(snap)
	return true
}

// Close stops any running poller.
func (c *Controller) Close() {
	c.mu.Lock()
	c.epoch++
	p := c.poller
	c.poller = nil
	c.mu.Unlock()
	p.Stop()
}

func (c *Controller) notify(s Snapshot) {
	c.mu.Lock()
	ls := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range ls {
		fn(s)
	}
}
