package controllog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/exchange-trader/internal/events"
	"github.com/rickgao/exchange-trader/internal/metrics"
)

// Schema creates the control_log table.
const Schema = `
CREATE TABLE IF NOT EXISTS control_log (
	id          BIGSERIAL PRIMARY KEY,
	instance_id TEXT        NOT NULL,
	kind        TEXT        NOT NULL,
	market_id   TEXT        NOT NULL DEFAULT '',
	payload     JSONB       NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
	INSERT INTO control_log (instance_id, kind, market_id, payload, received_at)
	VALUES ($1, $2, $3, $4, $5)
`

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// EnsureSchema creates the control_log table if missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create control_log: %w", err)
	}
	return nil
}

// WriterConfig configures batching.
type WriterConfig struct {
	InstanceID    string
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int // Initial queue capacity
	MaxPending    int // Entries beyond this are dropped; 0 = unbounded
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
		MaxPending:    100000,
	}
}

// WriterMetrics are the writer's running totals.
type WriterMetrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}

type row struct {
	Kind       string
	MarketID   string
	Payload    []byte
	ReceivedAt time.Time
}

// Writer consumes control log entries and writes them to PostgreSQL in
// batches.
type Writer struct {
	cfg     WriterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	input *events.Queue
	db    DB
	now   func() time.Time

	// Batching
	batch       []row
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats WriterMetrics
}

// NewWriter creates a Writer.
func NewWriter(cfg WriterConfig, db DB, logger *slog.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &Writer{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		input:   events.NewQueue(cfg.BufferSize),
		db:      db,
		now:     time.Now,
		batch:   make([]row, 0, cfg.BatchSize),
	}
}

// Log implements Sink. Entries are queued and written by the consume loop.
func (w *Writer) Log(e events.Event) {
	if w.cfg.MaxPending > 0 && w.input.Len() >= w.cfg.MaxPending {
		w.drop(e)
		return
	}
	if !w.input.Put(e) {
		w.drop(e)
	}
}

// Start begins consuming entries and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("control log writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the writer down, draining queued entries into a final flush.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping control log writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("control log writer stopped")
	case <-ctx.Done():
		w.logger.Warn("control log writer stop timed out")
	}

	// Whatever the consume loop left behind.
	for {
		e, ok := w.input.TryGet()
		if !ok {
			break
		}
		w.handle(e)
	}
	w.flush(ctx)
	return nil
}

// Stats returns current totals.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		e, err := w.input.Get(w.ctx)
		if err != nil {
			return
		}
		w.handle(e)
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handle transforms and adds an entry to the batch.
func (w *Writer) handle(e events.Event) {
	r, err := w.transform(e)
	if err != nil {
		w.logger.Error("encode control log entry", "kind", string(e.Kind()), "error", err)
		w.drop(e)
		return
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, r)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *Writer) transform(e events.Event) (row, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return row{}, err
	}
	return row{
		Kind:       string(e.Kind()),
		MarketID:   marketID(e),
		Payload:    payload,
		ReceivedAt: w.now().UTC(),
	}, nil
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	err := w.batchInsert(ctx, batch)
	w.metrics.ControlLogBatch(len(batch), err)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch))
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed control log",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

func (w *Writer) batchInsert(ctx context.Context, rows []row) error {
	if ctx == nil || ctx.Err() != nil {
		// Shutting down: write with a fresh context so the final batch lands.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL, w.cfg.InstanceID, r.Kind, r.MarketID, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) drop(e events.Event) {
	w.metrics.ControlLogDrop()
	w.batchMu.Lock()
	w.stats.Dropped++
	w.batchMu.Unlock()
	w.logger.Warn("control log entry dropped", "kind", string(e.Kind()))
}
