package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/gemini"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/metrics"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/store"
)

// FallbackMessage is shown when a failure carries no message of its own.
const FallbackMessage = "Failed to remove the background. Please try again."

var (
	// ErrBusy is returned when a file is submitted while a request is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrNotImage is gemini.ErrNotImage, returned by Submit before any state
	// change.
	ErrNotImage = gemini.ErrNotImage
)

// previewTTL bounds how long a forgotten preview can stay in memory.
const previewTTL = time.Hour

// Snapshot is a copy of the session for rendering.
type Snapshot struct {
	State      State
	Source     media.File
	HasSource  bool
	PreviewID  string
	Processed  media.Encoded
	Err        string
	Failure    error // the cause behind Err, for callers that classify failures
	Generation uint64
}

// Options configure a Controller.
type Options struct {
	Remover  gemini.Remover
	Previews *store.Memory // optional; a private store is created when nil
	Metrics  *metrics.Registry
	Logger   *zap.SugaredLogger

	// OnTransition observes every state change. It runs with the controller
	// lock held and must not call back into the controller.
	OnTransition func(from, to State)
}

// Controller owns one session and its state machine:
// initial -> loading -> result|error, and reset back to initial from anywhere.
type Controller struct {
	mu       sync.Mutex
	remover  gemini.Remover
	previews *store.Memory
	reg      *metrics.Registry
	logger   *zap.SugaredLogger
	observe  func(from, to State)

	state     State
	source    *media.File
	preview   *store.Handle
	processed media.Encoded
	errText   string
	failure   error
	gen       uint64
	cancel    context.CancelFunc
}

// New creates a controller in the initial state.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	previews := opts.Previews
	if previews == nil {
		previews = store.NewMemory(opts.Metrics, logger)
	}
	return &Controller{
		remover:  opts.Remover,
		previews: previews,
		reg:      opts.Metrics,
		logger:   logger,
		observe:  opts.OnTransition,
	}
}

// Job is one pending API call. Run performs it and may be called from any
// goroutine; the outcome must be handed back through Resolve.
type Job struct {
	gen     uint64
	ctx     context.Context
	file    media.File
	remover gemini.Remover
}

// Outcome is what a Job produced.
type Outcome struct {
	Generation uint64
	Image      media.Encoded
	Err        error
}

// Generation identifies the submission the job belongs to.
func (j Job) Generation() uint64 { return j.gen }

// Run calls the remover. It blocks until the remover returns.
func (j Job) Run() Outcome {
	if j.remover == nil {
		return Outcome{Generation: j.gen, Err: errors.New("no background remover configured")}
	}
	img, err := j.remover.RemoveBackground(j.ctx, j.file)
	if err == nil && img.Empty() {
		err = gemini.ErrNoImage
	}
	return Outcome{Generation: j.gen, Image: img, Err: err}
}

// Submit starts a session for file. Prior result and error are cleared and the
// controller moves to loading. Submitting while loading returns ErrBusy.
func (c *Controller) Submit(ctx context.Context, file media.File) (Job, error) {
	if !media.IsImage(file.MIMEType) {
		return Job{}, fmt.Errorf("%w: %q has type %s", ErrNotImage, file.Name, displayType(file.MIMEType))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoading {
		return Job{}, ErrBusy
	}

	c.clearLocked()
	preview, err := c.previews.Save(ctx, store.Entry{Name: file.Name, MIMEType: file.MIMEType, Data: file.Data}, previewTTL)
	if err != nil {
		c.logger.Warnw("preview not stored", "file", file.Name, "error", err)
	}
	src := file
	c.source = &src
	c.preview = preview
	c.gen++

	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.transitionLocked(StateLoading)
	c.logger.Infow("background removal submitted", "file", file.Name, "mime", file.MIMEType, "bytes", file.Size(), "generation", c.gen)

	return Job{gen: c.gen, ctx: jobCtx, file: src, remover: c.remover}, nil
}

// Resolve applies a job outcome. It reports false when the outcome is stale,
// i.e. the session was reset or resubmitted after the job started.
func (c *Controller) Resolve(out Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Generation != c.gen || c.state != StateLoading {
		c.logger.Debugw("stale outcome discarded", "generation", out.Generation, "current", c.gen, "state", c.state.String())
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if out.Err != nil {
		c.processed = media.Encoded{}
		c.errText = ErrorMessage(out.Err)
		c.failure = out.Err
		c.transitionLocked(StateError)
		c.logger.Warnw("background removal failed", "file", c.source.Name, "error", out.Err)
		c.reg.Inc(context.Background(), "sessions_total", map[string]string{"outcome": "error"}, 1)
		return true
	}

	c.processed = out.Image
	c.errText = ""
	c.transitionLocked(StateResult)
	c.logger.Infow("background removed", "file", c.source.Name, "mime", out.Image.MIMEType)
	c.reg.Inc(context.Background(), "sessions_total", map[string]string{"outcome": "result"}, 1)
	return true
}

// Process runs a whole submission synchronously.
func (c *Controller) Process(ctx context.Context, file media.File) (Snapshot, error) {
	job, err := c.Submit(ctx, file)
	if err != nil {
		return c.Snapshot(), err
	}
	c.Resolve(job.Run())
	return c.Snapshot(), nil
}

// Reset discards the session and returns to initial. An in-flight request is
// cancelled and its outcome will be ignored.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	c.gen++
	if c.state != StateInitial {
		c.transitionLocked(StateInitial)
	}
}

// Close releases every resource the session holds.
func (c *Controller) Close() error {
	c.Reset()
	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:      c.state,
		PreviewID:  c.preview.ID(),
		Processed:  c.processed,
		Err:        c.errText,
		Failure:    c.failure,
		Generation: c.gen,
	}
	if c.source != nil {
		snap.Source = *c.source
		snap.Source.Data = append([]byte(nil), c.source.Data...)
		snap.HasSource = true
	}
	return snap
}

// Preview returns the source image held by the preview handle. It reports
// false once the session is reset or the entry has expired.
func (c *Controller) Preview() (store.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview.Entry()
}

func (c *Controller) clearLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.preview != nil {
		if err := c.preview.Close(); err != nil {
			c.logger.Warnw("preview release failed", "preview_id", c.preview.ID(), "error", err)
		}
		c.preview = nil
	}
	c.source = nil
	c.processed = media.Encoded{}
	c.errText = ""
	c.failure = nil
}

func (c *Controller) transitionLocked(to State) {
	from := c.state
	c.state = to
	c.logger.Debugw("session transition", "from", from.String(), "to", to.String(), "generation", c.gen)
	if c.observe != nil {
		c.observe(from, to)
	}
}

// ErrorMessage turns a failure into text for the user.
func ErrorMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackMessage
}

func displayType(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return "unknown"
	}
	return mimeType
}
