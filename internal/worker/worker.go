package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/exchange-trader/internal/metrics"
)

// Params are the fixed arguments bound to a worker at construction.
type Params struct {
	Args   []any
	Kwargs map[string]any
}

// Func is a worker task. It runs to completion before the worker sleeps.
type Func func(ctx context.Context, state *State, host Host, params Params) error

// Config holds worker configuration.
type Config struct {
	Name       string
	Interval   time.Duration // Wait between the end of one run and the next
	StartDelay time.Duration // Wait before the first run
	Func       Func
	Args       []any
	Kwargs     map[string]any
	State      *State // Nil means a fresh empty State
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("worker name is required")
	}
	if c.Func == nil {
		return fmt.Errorf("worker %s: func is required", c.Name)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("worker %s: interval must be positive", c.Name)
	}
	if c.StartDelay < 0 {
		return fmt.Errorf("worker %s: start delay must not be negative", c.Name)
	}
	return nil
}

// BackgroundWorker invokes one task periodically on its own goroutine.
type BackgroundWorker struct {
	name       string
	interval   time.Duration
	startDelay time.Duration
	fn         Func
	params     Params
	state      *State

	host    Host
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a BackgroundWorker.
func New(cfg Config, host Host, logger *slog.Logger, m *metrics.Metrics) (*BackgroundWorker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	state := cfg.State
	if state == nil {
		state = NewState()
	}
	return &BackgroundWorker{
		name:       cfg.Name,
		interval:   cfg.Interval,
		startDelay: cfg.StartDelay,
		fn:         cfg.Func,
		params:     Params{Args: cfg.Args, Kwargs: cfg.Kwargs},
		state:      state,
		host:       host,
		logger:     logger.With("worker", cfg.Name),
		metrics:    m,
	}, nil
}

// Name returns the worker name used in logs and metrics.
func (w *BackgroundWorker) Name() string { return w.name }

// Interval returns the wait between runs.
func (w *BackgroundWorker) Interval() time.Duration { return w.interval }

// StartDelay returns the wait before the first run.
func (w *BackgroundWorker) StartDelay() time.Duration { return w.startDelay }

// State returns the state shared by every run of this worker.
func (w *BackgroundWorker) State() *State { return w.state }

// Params returns the arguments passed to each run.
func (w *BackgroundWorker) Params() Params { return w.params }

// Start launches the worker loop. It returns immediately.
func (w *BackgroundWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return fmt.Errorf("worker %s already started", w.name)
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("worker started",
		"interval", w.interval,
		"start_delay", w.startDelay,
	)

	return nil
}

// Stop cancels the loop and waits for the current run to finish.
func (w *BackgroundWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the loop exits.
func (w *BackgroundWorker) Wait() {
	w.wg.Wait()
}

// run is the main worker loop.
func (w *BackgroundWorker) run(ctx context.Context) {
	defer w.wg.Done()

	if w.startDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.startDelay):
		}
	}

	for {
		_ = w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

// RunOnce executes one task invocation. Errors and panics are logged,
// counted and returned; they never stop the loop.
func (w *BackgroundWorker) RunOnce(ctx context.Context) (err error) {
	start := time.Now()
	result := metrics.ResultOK

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s panic: %v", w.name, r)
			result = metrics.ResultPanic
			w.logger.Error("worker panicked", "panic", r)
		}
		w.metrics.ObserveWorkerRun(w.name, result, time.Since(start))
	}()

	if err = w.fn(ctx, w.state, w.host, w.params); err != nil {
		result = metrics.ResultError
		w.logger.Error("worker run failed", "error", err)
		return err
	}

	w.logger.Debug("worker run complete", "duration", time.Since(start))
	return nil
}
