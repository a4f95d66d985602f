// Package lifecycle drives one outstanding inference request per feature and
// turns its outcome into a history record.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/service/history"
)

var (
	// ErrBusy is returned when a request is already pending.
	ErrBusy = errors.New("a request is already in progress")
	// ErrValidation wraps input rejected before any request is sent.
	ErrValidation = errors.New("invalid input")
	// ErrCanceled is returned when the pending request was abandoned.
	ErrCanceled = errors.New("request abandoned")
)

// Phase is the controller state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Input is the history-facing description of a request input.
type Input struct {
	Payload string
	Kind    model.InputKind
	Tag     string
}

// Feature binds the controller to one feature area.
type Feature[I any, R any, M any] struct {
	Name string
	// Validate rejects empty or unsupported input.
	Validate func(I) error
	// Describe extracts the payload, kind and tag stored on the record.
	Describe func(I) Input
	// Invoke calls the remote collaborator.
	Invoke func(context.Context, I) (R, error)
	// Metrics derives the cached metrics of a result. Must be total.
	Metrics func(R) M
	// OnFailure builds the result of a failure placeholder record. Returning
	// false records nothing and only surfaces FailureMessage.
	OnFailure func(I, error) (R, bool)
	// FailureMessage is the user-safe text shown when a request fails.
	FailureMessage string
	// Replay rebuilds a request input from a stored record, for Regenerate.
	Replay func(model.Record[R, M]) (I, bool)
}

// Event is published on every state transition.
type Event struct {
	Feature  string    `json:"feature"`
	Phase    Phase     `json:"phase"`
	Typing   bool      `json:"typing"`
	Error    string    `json:"error,omitempty"`
	RecordID string    `json:"recordId,omitempty"`
	At       time.Time `json:"at"`
}

// Observer receives transitions, e.g. to fan them out to connected clients.
type Observer interface {
	Publish(Event)
}

// Recorder receives request outcomes for metrics.
type Recorder interface {
	ObserveRequest(feature, outcome string, elapsed time.Duration)
}

// Options tune a Controller.
type Options struct {
	// Timeout bounds the pending state. Zero waits for the collaborator.
	Timeout  time.Duration
	Logger   zerolog.Logger
	Observer Observer
	Recorder Recorder
	// NewID generates record ids. Defaults to time-ordered UUIDv7.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Feature      string `json:"feature"`
	Phase        Phase  `json:"phase"`
	Typing       bool   `json:"typing"`
	Error        string `json:"error,omitempty"`
	Draft        string `json:"draft,omitempty"`
	LastRecordID string `json:"lastRecordId,omitempty"`
}

// Outcome is the typed result of a settled request.
type Outcome[R any, M any] struct {
	// Record is the record appended to history, if any.
	Record *model.Record[R, M]
	// Result is what the UI should display: the remote result or the fallback.
	Result R
	Failed bool
	// Message is a user-safe failure message.
	Message string
	// Warning reports a non-fatal persistence problem.
	Warning string
	// Err is the underlying failure.
	Err error
}

// Controller allows at most one request in flight.
type Controller[I any, R any, M any] struct {
	feature Feature[I, R, M]
	store   *history.Store[R, M]
	opts    Options
	log     zerolog.Logger

	mu        sync.Mutex
	phase     Phase
	typing    bool
	lastError string
	draft     string
	lastID    string
	cancel    context.CancelFunc
	abandoned bool
}

// New builds an idle controller writing to store.
func New[I any, R any, M any](store *history.Store[R, M], feature Feature[I, R, M], opts Options) (*Controller[I, R, M], error) {
	if store == nil {
		return nil, fmt.Errorf("lifecycle %q: store is required", feature.Name)
	}
	if feature.Invoke == nil || feature.Describe == nil || feature.Metrics == nil {
		return nil, fmt.Errorf("lifecycle %q: Invoke, Describe and Metrics are required", feature.Name)
	}
	if opts.NewID == nil {
		opts.NewID = newRecordID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller[I, R, M]{
		feature: feature,
		store:   store,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "lifecycle").Str("feature", feature.Name).Logger(),
		phase:   PhaseIdle,
	}, nil
}

// Store returns the history store the controller appends to.
func (c *Controller[I, R, M]) Store() *history.Store[R, M] { return c.store }

// Snapshot returns the current state.
func (c *Controller[I, R, M]) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetDraft replaces the live input buffer.
func (c *Controller[I, R, M]) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the live input buffer.
func (c *Controller[I, R, M]) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Cancel abandons the pending request, if any. Its result is discarded.
func (c *Controller[I, R, M]) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhasePending || c.cancel == nil {
		return false
	}
	c.abandoned = true
	c.cancel()
	return true
}

// Submit validates in, calls the collaborator and records the outcome. It
// returns ErrBusy without touching state when a request is pending, and an
// ErrValidation-wrapped error when in is rejected. Remote failures are
// reported through Outcome.Failed, never as an error.
func (c *Controller[I, R, M]) Submit(ctx context.Context, in I) (Outcome[R, M], error) {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return Outcome[R, M]{}, ErrBusy
	}
	if c.feature.Validate != nil {
		if err := c.feature.Validate(in); err != nil {
			c.lastError = err.Error()
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.publish(snap, "")
			return Outcome[R, M]{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	reqCtx, cancel := c.requestContext(ctx)
	c.phase = PhasePending
	c.typing = true
	c.lastError = ""
	c.abandoned = false
	c.cancel = cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap, "")

	start := c.opts.Now()
	result, err := c.invoke(reqCtx, in)
	cancel()
	elapsed := c.opts.Now().Sub(start)

	c.mu.Lock()
	c.typing = false
	c.cancel = nil
	// A caller that went away abandons the request like Cancel does.
	abandoned := c.abandoned || ctx.Err() != nil
	c.mu.Unlock()

	// Persist independently of the caller going away.
	saveCtx := context.WithoutCancel(ctx)

	if abandoned {
		c.observe("canceled", elapsed)
		c.settle(PhaseIdle, "", "")
		return Outcome[R, M]{}, ErrCanceled
	}
	if err != nil {
		c.observe("failed", elapsed)
		return c.fail(saveCtx, in, err), nil
	}
	c.observe("succeeded", elapsed)
	return c.succeed(saveCtx, in, result), nil
}

// invoke calls the collaborator, turning a panic into an error so the
// controller always leaves the pending phase.
func (c *Controller[I, R, M]) invoke(ctx context.Context, in I) (result R, err error) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Error().Interface("panic", p).Msg("inference call panicked")
			err = fmt.Errorf("inference call panicked: %v", p)
		}
	}()
	return c.feature.Invoke(ctx, in)
}

// Regenerate re-submits the input of the most recent record that can be
// replayed. It reports false, doing nothing, when there is none.
func (c *Controller[I, R, M]) Regenerate(ctx context.Context) (Outcome[R, M], bool, error) {
	if c.feature.Replay == nil {
		return Outcome[R, M]{}, false, nil
	}
	for _, rec := range c.store.Records() {
		in, ok := c.feature.Replay(rec)
		if !ok {
			continue
		}
		out, err := c.Submit(ctx, in)
		return out, true, err
	}
	return Outcome[R, M]{}, false, nil
}

func (c *Controller[I, R, M]) succeed(ctx context.Context, in I, result R) Outcome[R, M] {
	out := Outcome[R, M]{Result: result}

	rec, warning := c.record(ctx, in, result, false)
	out.Record = rec
	out.Warning = warning

	c.mu.Lock()
	c.draft = ""
	if rec != nil {
		c.lastID = rec.ID
	}
	c.mu.Unlock()

	recordID := ""
	if rec != nil {
		recordID = rec.ID
	}
	c.settle(PhaseSucceeded, "", recordID)
	c.settle(PhaseIdle, "", "")
	return out
}

func (c *Controller[I, R, M]) fail(ctx context.Context, in I, cause error) Outcome[R, M] {
	message := c.feature.FailureMessage
	if message == "" {
		message = "The request failed. Please try again."
	}
	c.log.Warn().Err(cause).Msg("inference request failed")

	out := Outcome[R, M]{Failed: true, Message: message, Err: cause}

	recordID := ""
	if c.feature.OnFailure != nil {
		if fallback, ok := c.feature.OnFailure(in, cause); ok {
			out.Result = fallback
			rec, warning := c.record(ctx, in, fallback, true)
			out.Record = rec
			out.Warning = warning
			if rec != nil {
				recordID = rec.ID
				c.mu.Lock()
				c.lastID = rec.ID
				c.mu.Unlock()
			}
		}
	}

	c.mu.Lock()
	c.lastError = message
	c.mu.Unlock()

	c.settle(PhaseFailed, message, recordID)
	c.settle(PhaseIdle, message, "")
	return out
}

// record builds and appends a record. A persistence failure keeps the record
// and is returned as a warning.
func (c *Controller[I, R, M]) record(ctx context.Context, in I, result R, failed bool) (*model.Record[R, M], string) {
	desc := c.feature.Describe(in)
	rec := model.Record[R, M]{
		ID:           c.opts.NewID(),
		CreatedAt:    model.Timestamp(c.opts.Now()),
		InputPayload: desc.Payload,
		InputKind:    desc.Kind,
		Result:       result,
		Metrics:      c.feature.Metrics(result),
		Tag:          desc.Tag,
		Failed:       failed,
	}

	err := c.store.Add(ctx, rec)
	if errors.Is(err, history.ErrDuplicateID) {
		rec.ID = c.opts.NewID()
		err = c.store.Add(ctx, rec)
	}
	switch {
	case err == nil:
		return &rec, ""
	case errors.Is(err, history.ErrPersist):
		return &rec, "history could not be saved; it is kept for this session only"
	default:
		c.log.Error().Err(err).Msg("record not added to history")
		return nil, ""
	}
}

func (c *Controller[I, R, M]) settle(phase Phase, errMsg, recordID string) {
	c.mu.Lock()
	c.phase = phase
	if errMsg != "" {
		c.lastError = errMsg
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap, recordID)
}

func (c *Controller[I, R, M]) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout > 0 {
		return context.WithTimeout(ctx, c.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller[I, R, M]) snapshotLocked() Snapshot {
	return Snapshot{
		Feature:      c.feature.Name,
		Phase:        c.phase,
		Typing:       c.typing,
		Error:        c.lastError,
		Draft:        c.draft,
		LastRecordID: c.lastID,
	}
}

func (c *Controller[I, R, M]) publish(snap Snapshot, recordID string) {
	if c.opts.Observer == nil {
		return
	}
	c.opts.Observer.Publish(Event{
		Feature:  snap.Feature,
		Phase:    snap.Phase,
		Typing:   snap.Typing,
		Error:    snap.Error,
		RecordID: recordID,
		At:       c.opts.Now().UTC(),
	})
}

func (c *Controller[I, R, M]) observe(outcome string, elapsed time.Duration) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.ObserveRequest(c.feature.Name, outcome, elapsed)
	}
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
