package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/klotski/game/clock"
	"github.com/wricardo/klotski/game/engine"
)

// State is the playback state of one puzzle
type State string

const (
	Idle State = "idle"
	Busy State = "busy"
)

// Pacing between applied solver moves
const (
	SolvePace = 650 * time.Millisecond
	HintPace  = 500 * time.Millisecond
)

var (
	ErrBusy      = errors.New("playback already in progress")
	ErrCancelled = errors.New("playback cancelled")
)

// Solver produces moves for a board state
type Solver interface {
	Solve(ctx context.Context, state engine.BoardState) ([]engine.Move, error)
	Hint(ctx context.Context, state engine.BoardState) (engine.Move, error)
}

// Status describes the controller for presentation layers
type Status struct {
	State State  `json:"state"`
	Mode  string `json:"mode,omitempty"`
	Run   int    `json:"run"`
}

// InputResult is the outcome of a user interaction routed through the
// controller
type InputResult struct {
	Direction         engine.Direction `json:"direction,omitempty"`
	Moved             bool             `json:"moved"`
	CancelledPlayback bool             `json:"cancelled_playback"`
}

// Controller gates user input and solver playback on one engine. While a
// run is Busy, any user interaction cancels it instead of moving.
type Controller struct {
	engine engine.Engine
	solver Solver
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	mode   string
	run    int
	cancel context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithClock sets the clock used for the pacing delays
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.logger = logger
	}
}

// NewController creates an idle controller for eng
func NewController(eng engine.Engine, solver Solver, opts ...Option) *Controller {
	c := &Controller{
		engine: eng,
		solver: solver,
		clock:  clock.Real(),
		logger: slog.Default(),
		state:  Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current playback state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a solve or hint is running
func (c *Controller) Busy() bool {
	return c.State() == Busy
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Mode: c.mode, Run: c.run}
}

// Solve fetches a solution for the current board and plays it back, one
// move per SolvePace. It returns the number of moves applied. A cancelled
// run returns ErrCancelled; moves already applied stay applied.
func (c *Controller) Solve(ctx context.Context) (int, error) {
	run, runCtx, err := c.begin(ctx, "solve")
	if err != nil {
		return 0, err
	}
	return c.playSolve(runCtx, run)
}

// StartSolve moves to Busy and runs Solve in a new goroutine. ErrBusy is
// returned synchronously; done, when set, receives the outcome.
func (c *Controller) StartSolve(ctx context.Context, done func(applied int, err error)) error {
	run, runCtx, err := c.begin(ctx, "solve")
	if err != nil {
		return err
	}
	go func() {
		applied, err := c.playSolve(runCtx, run)
		if done != nil {
			done(applied, err)
		}
	}()
	return nil
}

func (c *Controller) playSolve(runCtx context.Context, run int) (int, error) {
	defer c.finish(run)

	moves, err := c.solver.Solve(runCtx, c.engine.BoardState())
	if err != nil {
		if !c.active(run) {
			return 0, ErrCancelled
		}
		c.logger.Warn("solve request failed", "error", err)
		return 0, fmt.Errorf("solve: %w", err)
	}
	c.logger.Info("playing back solution", "run", run, "moves", len(moves))

	applied := 0
	for i, m := range moves {
		ok, err := c.applyIfActive(run, m)
		if !ok {
			return applied, ErrCancelled
		}
		if err != nil {
			c.logger.Error("solver move rejected, stopping playback", "run", run, "move", i, "piece", m.PieceID, "error", err)
			return applied, fmt.Errorf("apply move %d: %w", i, err)
		}
		applied++

		if err := c.clock.Sleep(runCtx, SolvePace); err != nil && i < len(moves)-1 {
			return applied, ErrCancelled
		}
	}

	c.logger.Info("playback finished", "run", run, "applied", applied)
	return applied, nil
}

// Hint fetches and applies one move, then holds Busy for HintPace
func (c *Controller) Hint(ctx context.Context) (*engine.Move, error) {
	run, runCtx, err := c.begin(ctx, "hint")
	if err != nil {
		return nil, err
	}
	return c.playHint(runCtx, run)
}

// StartHint is the asynchronous form of Hint
func (c *Controller) StartHint(ctx context.Context, done func(m *engine.Move, err error)) error {
	run, runCtx, err := c.begin(ctx, "hint")
	if err != nil {
		return err
	}
	go func() {
		m, err := c.playHint(runCtx, run)
		if done != nil {
			done(m, err)
		}
	}()
	return nil
}

func (c *Controller) playHint(runCtx context.Context, run int) (*engine.Move, error) {
	defer c.finish(run)

	m, err := c.solver.Hint(runCtx, c.engine.BoardState())
	if err != nil {
		if !c.active(run) {
			return nil, ErrCancelled
		}
		c.logger.Warn("hint request failed", "error", err)
		return nil, fmt.Errorf("hint: %w", err)
	}

	// The user may have interacted while the request was in flight
	ok, err := c.applyIfActive(run, m)
	if !ok {
		return nil, ErrCancelled
	}
	if err != nil {
		c.logger.Error("hint rejected", "piece", m.PieceID, "error", err)
		return nil, fmt.Errorf("apply hint: %w", err)
	}

	// The hint is already on the board; a cut-short hold only ends Busy early.
	if err := c.clock.Sleep(runCtx, HintPace); err != nil {
		c.logger.Debug("hint hold interrupted", "run", run, "error", err)
	}
	return &m, nil
}

// Cancel stops the running solve or hint. It reports whether anything was
// running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	if c.state != Busy {
		c.mu.Unlock()
		return false
	}
	run := c.run
	c.stopLocked()
	c.mu.Unlock()

	c.logger.Info("playback cancelled", "run", run)
	c.publish(Idle, "cancelled")
	return true
}

// Select handles a user choosing a piece and a direction
func (c *Controller) Select(pieceID int, dir engine.Direction) (InputResult, error) {
	if c.Cancel() {
		return InputResult{CancelledPlayback: true}, nil
	}

	moved, err := c.engine.Move(pieceID, dir)
	if err != nil {
		return InputResult{}, err
	}
	return InputResult{Direction: dir, Moved: moved}, nil
}

// Tap handles a pointer press inside a piece's bounding box
func (c *Controller) Tap(pieceID int, x, y, boxWidth, boxHeight float64) (InputResult, error) {
	if c.Cancel() {
		return InputResult{CancelledPlayback: true}, nil
	}

	dir, moved, err := c.engine.Tap(pieceID, x, y, boxWidth, boxHeight)
	if err != nil {
		return InputResult{}, err
	}
	return InputResult{Direction: dir, Moved: moved}, nil
}

// Reset cancels playback and rebuilds the board from its layout. No move of
// the cancelled run can land on the rebuilt board.
func (c *Controller) Reset() *engine.GameState {
	c.mu.Lock()
	wasBusy := c.state == Busy
	run := c.run
	if wasBusy {
		c.stopLocked()
	}
	state := c.engine.Reset()
	c.mu.Unlock()

	if wasBusy {
		c.logger.Info("playback cancelled by reset", "run", run)
		c.publish(Idle, "cancelled")
	}
	return state
}

func (c *Controller) begin(ctx context.Context, mode string) (int, context.Context, error) {
	c.mu.Lock()
	if c.state == Busy {
		c.mu.Unlock()
		return 0, nil, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.run++
	c.state = Busy
	c.mode = mode
	c.cancel = cancel
	run := c.run
	c.mu.Unlock()

	c.publish(Busy, mode)
	return run, runCtx, nil
}

// finish returns to Idle unless the run was already cancelled or replaced
func (c *Controller) finish(run int) {
	c.mu.Lock()
	if c.run != run || c.state != Busy {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.mu.Unlock()

	c.publish(Idle, "finished")
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = Idle
	c.mode = ""
	// A new token so a late finish of this run cannot touch the next one
	c.run++
}

// applyIfActive applies m only while run is the current Busy run. ok is false
// when the run was cancelled. mu is held across the check and the apply, so
// engine event sinks must not call back into the Controller.
func (c *Controller) applyIfActive(run int, m engine.Move) (ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Busy || c.run != run {
		return false, nil
	}
	return true, c.engine.Apply(m)
}

func (c *Controller) active(run int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Busy && c.run == run
}

func (c *Controller) publish(state State, detail string) {
	c.engine.Publish(engine.Event{
		Type:      engine.EventPlayback,
		Moves:     c.engine.MoveCount(),
		Detail:    string(state) + ":" + detail,
		Timestamp: time.Now(),
	})
}
