package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strrl/health-sessions/internal/healthdata"
	"github.com/strrl/health-sessions/internal/telemetry"
	"github.com/strrl/health-sessions/pkg/models"
)

var (
	// ErrClosed is returned for commands issued after Close
	ErrClosed = errors.New("session controller closed")
	// ErrQueueFull is the failure published when the command queue is full
	ErrQueueFull = errors.New("session command queue full")
	// ErrUnknownSession marks a delete for a uid the controller never listed
	ErrUnknownSession = errors.New("session not in current list")
)

// Op names a controller command
type Op string

const (
	OpActivate Op = "activate"
	OpLoad     Op = "load"
	OpInsert   Op = "insert"
	OpDelete   Op = "delete"
	OpImport   Op = "import"
	opFlush    Op = "flush"
)

// watchBuffer bounds the unread failure states held for one watcher
const watchBuffer = 16

type command struct {
	id     string
	op     Op
	record models.SessionRecord
	uid    string
	glob   string
	done   chan struct{}
}

// Controller owns the session list state. Commands never block: they are
// queued and run one at a time by a single worker goroutine, which is the
// only writer of the list. Results are published to watchers.
type Controller struct {
	svc  healthdata.Service
	opts options

	commands chan command
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.RWMutex
	state     models.ListState
	pending   int
	watchers  []chan models.ListState
	started   bool
	closed    bool
	closeOnce sync.Once
}

// NewController creates a controller over svc. Call Start before issuing
// commands and Close when the screen is torn down.
func NewController(svc healthdata.Service, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		svc:      svc,
		opts:     o,
		commands: make(chan command, o.queueSize),
		ctx:      ctx,
		cancel:   cancel,
		state:    models.ListState{Outcome: models.Idle()},
	}
}

// Start begins processing commands
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true

	c.wg.Add(1)
	go c.processCommands()
}

// Close tears the controller down. In-flight service calls are cancelled,
// their results dropped, queued commands discarded and watchers closed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()

		c.mu.Lock()
		for _, w := range c.watchers {
			close(w)
		}
		c.watchers = nil
		c.mu.Unlock()
	})
}

// State returns a snapshot of the current list state
func (c *Controller) State() models.ListState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Watch returns a channel carrying the latest state. A slow reader skips
// intermediate states but always sees the newest, and every failure
// occurrence is kept until read, so none is replaced by a later outcome.
// The channel is closed by Close.
func (c *Controller) Watch() <-chan models.ListState {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := make(chan models.ListState, watchBuffer)
	if c.closed {
		close(w)
		return w
	}
	w <- c.state.Clone()
	c.watchers = append(c.watchers, w)
	return w
}

// Activate performs the passive initial load. A successful load replaces
// the records but leaves the outcome as it was.
func (c *Controller) Activate() error {
	return c.submit(command{op: OpActivate})
}

// LoadSessions re-fetches every record; success sets the Success outcome
func (c *Controller) LoadSessions() error {
	return c.submit(command{op: OpLoad})
}

// InsertSession inserts a sample session ending now, then refreshes
func (c *Controller) InsertSession() error {
	end := c.opts.now()
	return c.InsertRecord(models.SessionRecord{
		Name:  c.opts.sampleName,
		Start: end.Add(-c.opts.sampleDuration),
		End:   end,
	})
}

// InsertRecord inserts record, then refreshes. The service assigns a UID
// when record has none.
func (c *Controller) InsertRecord(record models.SessionRecord) error {
	return c.submit(command{op: OpInsert, record: record})
}

// DeleteSession deletes uid, which must be in the current list
func (c *Controller) DeleteSession(uid string) error {
	return c.submit(command{op: OpDelete, uid: uid})
}

// ImportSessions bulk-loads an NDJSON export matching glob, then
// refreshes. The store must implement healthdata.Importer.
func (c *Controller) ImportSessions(glob string) error {
	return c.submit(command{op: OpImport, glob: glob})
}

// Flush waits until every command queued before it has completed
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	done := make(chan struct{})
	select {
	case c.commands <- command{id: uuid.New().String(), op: opFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) submit(cmd command) error {
	cmd.id = uuid.New().String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	select {
	case c.commands <- cmd:
		c.pending++
		c.state.Busy = true
		c.publishLocked()
		return nil
	default:
		c.opts.logger.Warn("command queue full", "op", cmd.op, "request_id", cmd.id)
		c.state.Outcome = models.Failure(ErrQueueFull)
		c.publishLocked()
		return ErrQueueFull
	}
}

// processCommands is the single writer of the record list
func (c *Controller) processCommands() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case cmd := <-c.commands:
			c.handleCommand(cmd)
		}
	}
}

type commandResult struct {
	records []models.SessionRecord
	replace bool
	removed string
	err     error
}

func (c *Controller) handleCommand(cmd command) {
	if cmd.op == opFlush {
		close(cmd.done)
		return
	}

	start := time.Now()
	var res commandResult

	switch cmd.op {
	case OpActivate, OpLoad:
		res.records, res.err = c.fetchAll()
		res.replace = res.err == nil

	case OpInsert:
		res.err = c.call(func(ctx context.Context) error {
			return c.svc.Insert(ctx, cmd.record)
		})
		if res.err == nil {
			res.records, res.err = c.fetchAll()
			res.replace = res.err == nil
		}

	case OpImport:
		importer, ok := c.svc.(healthdata.Importer)
		if !ok {
			res.err = healthdata.NewError("import sessions", healthdata.KindUnknown, healthdata.ErrImportUnsupported)
			break
		}
		res.err = c.call(func(ctx context.Context) error {
			n, err := importer.ImportNDJSON(ctx, cmd.glob)
			if err == nil {
				c.opts.logger.Info("sessions imported", "request_id", cmd.id, "glob", cmd.glob, "rows", n)
			}
			return err
		})
		if res.err == nil {
			res.records, res.err = c.fetchAll()
			res.replace = res.err == nil
		}

	case OpDelete:
		if !c.State().Contains(cmd.uid) {
			res.err = healthdata.NewError("delete session", healthdata.KindNotFound,
				fmt.Errorf("%w: %s", ErrUnknownSession, cmd.uid))
			break
		}
		res.err = c.call(func(ctx context.Context) error {
			return c.svc.Delete(ctx, cmd.uid)
		})
		if res.err == nil {
			res.removed = cmd.uid
		}
	}

	elapsed := time.Since(start)
	c.opts.metrics.ObserveCommand(string(cmd.op), res.err, elapsed)
	c.apply(cmd, res, elapsed)
}

func (c *Controller) fetchAll() ([]models.SessionRecord, error) {
	var records []models.SessionRecord
	err := c.call(func(ctx context.Context) error {
		var err error
		records, err = c.svc.FetchAll(ctx)
		return err
	})
	return records, err
}

// call runs fn with the per-call timeout, bounded by the controller lifetime
func (c *Controller) call(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.timeout)
	defer cancel()
	return fn(ctx)
}

func (c *Controller) apply(cmd command, res commandResult, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.opts.logger.Debug("dropping result after teardown", "op", cmd.op, "request_id", cmd.id)
		return
	}

	if res.replace {
		c.state.Records = res.records
	}
	if res.removed != "" {
		c.state.Records = removeRecord(c.state.Records, res.removed)
	}

	switch {
	case res.err != nil:
		c.state.Outcome = models.Failure(res.err)
		c.opts.logger.Warn("session command failed",
			"op", cmd.op,
			"request_id", cmd.id,
			"occurrence_id", c.state.Outcome.OccurrenceID.String(),
			"kind", healthdata.KindOf(res.err).String(),
			"error", res.err)
	case cmd.op == OpActivate:
		// passive refresh keeps the outcome
	default:
		c.state.Outcome = models.Success()
	}

	if res.err == nil {
		c.opts.logger.Debug("session command finished",
			"op", cmd.op,
			"request_id", cmd.id,
			"records", len(c.state.Records),
			"elapsed", elapsed)
	}

	c.pending--
	c.state.Busy = c.pending > 0
	c.opts.metrics.SetRecords(len(c.state.Records))
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.state.Version++
	snapshot := c.state.Clone()
	for _, w := range c.watchers {
		kept := unreadFailures(w, snapshot.Outcome)
		if len(kept) >= watchBuffer {
			c.opts.logger.Warn("watcher backlog full, dropping oldest failure",
				"occurrence_id", kept[0].Outcome.OccurrenceID.String())
			kept = kept[len(kept)-watchBuffer+1:]
		}
		// only this goroutine sends and it holds c.mu, so everything fits
		for _, s := range kept {
			w <- s
		}
		w <- snapshot
	}
}

// unreadFailures drains w and returns the states it held whose failure
// occurrence differs from next, oldest first
func unreadFailures(w chan models.ListState, next models.Outcome) []models.ListState {
	var kept []models.ListState
	for {
		select {
		case s := <-w:
			if s.Outcome.IsFailure() && s.Outcome.OccurrenceID != next.OccurrenceID {
				if n := len(kept); n > 0 && kept[n-1].Outcome.OccurrenceID == s.Outcome.OccurrenceID {
					kept[n-1] = s
					continue
				}
				kept = append(kept, s)
			}
		default:
			return kept
		}
	}
}

func removeRecord(records []models.SessionRecord, uid string) []models.SessionRecord {
	out := make([]models.SessionRecord, 0, len(records))
	for _, r := range records {
		if r.UID != uid {
			out = append(out, r)
		}
	}
	return out
}

// Metrics returns the metrics the controller reports to, if any
func (c *Controller) Metrics() *telemetry.Metrics {
	return c.opts.metrics
}
