// Package sync applies task mutations optimistically to the in-memory store
// and reconciles them with the remote gateway.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
	"github.com/google/uuid"
)

// ProvisionalPrefix marks ids assigned locally before the gateway confirms.
const ProvisionalPrefix = "tmp-"

// IsProvisional reports whether id was assigned locally.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Config holds controller settings.
type Config struct {
	Policy  FailurePolicy
	Timeout time.Duration // per gateway call; zero means none
	Now     func() time.Time
}

// Controller is the single writer of the task store. Store mutations and
// snapshots happen under one mutex; gateway calls run in their own
// goroutines and re-enter the mutex to apply their result.
type Controller struct {
	gateway   task.Gateway
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
	policy    FailurePolicy
	timeout   time.Duration
	now       func() time.Time

	mu      gosync.Mutex
	store   *task.Store
	seq     uint64
	epoch   uint64
	latest  map[string]*tracker
	aliases map[string]string
	// aliasOrder lists committed provisional ids, oldest first.
	aliasOrder []string
	// refs counts pending operations issued against each provisional id.
	refs    map[string]int
	creates map[string]*Operation

	inflight gosync.WaitGroup
}

// aliasRetention is how many committed provisional ids keep resolving
// after every operation on them has finished.
const aliasRetention = 256

// tracker holds the newest sequence number issued for a task and how many
// of its operations are still pending. It is dropped when none are.
type tracker struct {
	seq     uint64
	pending int
}

// NewController creates a controller over an empty store.
func NewController(
	gateway task.Gateway,
	publisher eventbus.Publisher,
	metrics observability.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyKeep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		gateway:   gateway,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("component", "sync"),
		policy:    cfg.Policy,
		timeout:   cfg.Timeout,
		now:       cfg.Now,
		store:     task.NewStore(),
		latest:    make(map[string]*tracker),
		aliases:   make(map[string]string),
		refs:      make(map[string]int),
		creates:   make(map[string]*Operation),
	}
}

// Policy returns the configured failure policy.
func (c *Controller) Policy() FailurePolicy {
	return c.policy
}

// Today returns the controller's current local day.
func (c *Controller) Today() value_objects.Date {
	return value_objects.Today(c.now)
}

// Snapshot returns a consistent copy of every task in store order.
func (c *Controller) Snapshot() []task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// Get returns one task. Provisional ids of committed creates resolve to the
// durable id.
func (c *Controller) Get(id string) (task.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(c.resolve(id))
}

// Resolve maps a provisional id to its durable id once known.
func (c *Controller) Resolve(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(id)
}

// Wait blocks until every in-flight operation has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Load replaces the store with the gateway's documents. Operations issued
// before the load complete as stale and never touch the new state.
func (c *Controller) Load(ctx context.Context) error {
	start := time.Now()

	callCtx, cancel := c.callContext(ctx)
	records, err := c.gateway.FetchAll(callCtx)
	cancel()
	if err != nil {
		c.metrics.Counter(observability.MetricSyncLoads, 1, observability.T("outcome", OutcomeFailed))
		return task.NewTransportError("fetch", err)
	}

	tasks := make([]task.Task, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		var err error
		switch {
		case strings.TrimSpace(r.ID) == "":
			err = task.ErrEmptyID
		case seen[r.ID]:
			err = task.ErrDuplicateID
		}
		var t task.Task
		if err == nil {
			t, err = task.FromRecord(r)
		}
		if err != nil {
			c.logger.Warn("skipping invalid remote record",
				"task_id", r.ID,
				"error", err,
			)
			c.metrics.Counter(observability.MetricSyncLoadSkipped, 1)
			continue
		}
		seen[r.ID] = true
		tasks = append(tasks, t)
	}

	c.mu.Lock()
	// Creates still in flight keep their optimistic entry across the load.
	for id, op := range c.creates {
		if op.finished() || seen[id] {
			continue
		}
		if t, err := c.store.Get(id); err == nil {
			tasks = append(tasks, t)
			seen[id] = true
		}
	}
	err = c.store.Reset(tasks)
	if err == nil {
		c.epoch = c.seq
		c.latest = make(map[string]*tracker)
		for id, op := range c.creates {
			if op.finished() && !c.store.Has(id) {
				delete(c.creates, id)
			}
		}
		c.pruneAliases(0)
	}
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	elapsed := time.Since(start)
	c.metrics.Counter(observability.MetricSyncLoads, 1, observability.T("outcome", OutcomeLoaded))
	c.logger.Info("tasks loaded",
		"count", len(tasks),
		observability.DurationKey, elapsed.Milliseconds(),
	)
	c.publish(ctx, SyncEvent{Outcome: OutcomeLoaded, Count: len(tasks), DurationMs: elapsed.Milliseconds()})
	return nil
}

// Create validates the draft, inserts it under a provisional id and asks
// the gateway to persist it. On commit the provisional id is swapped for
// the durable one in a single store mutation.
func (c *Controller) Create(ctx context.Context, draft task.Draft) (*Operation, error) {
	t, err := task.NewTask(draft)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	t.ID = ProvisionalPrefix + uuid.New().String()
	if err := c.store.Insert(t); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	op := c.issue(KindCreate, t.ID)
	c.creates[t.ID] = op
	c.mu.Unlock()

	record := task.ToRecord(t)
	record.ID = ""
	provisional := t.ID
	var durable string

	go c.run(ctx, op, nil,
		func(ctx context.Context, _ string) error {
			id, err := c.gateway.Create(ctx, record)
			if err == nil && id == "" {
				err = task.NewTransportError("create", errors.New("gateway returned an empty id"))
			}
			durable = id
			return err
		},
		func() { c.commitCreate(op, provisional, durable) },
		func() {
			if c.store.Has(provisional) {
				_, _ = c.store.Remove(provisional)
			}
		},
	)
	return op, nil
}

// Update validates and applies p, then patches the gateway document. A
// patch that leaves the task done without a completion date is stamped
// with today, as Toggle does.
func (c *Controller) Update(ctx context.Context, id string, p task.Patch) (*Operation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	today := c.Today()
	return c.mutate(ctx, KindUpdate, id, func(prev task.Task) task.Patch {
		next := p.Apply(prev)
		if !next.Done || next.CompletedDate != nil {
			return p
		}
		done := true
		stamped := p
		stamped.Done = &done
		stamped.CompletedDate = &today
		stamped.ClearCompletedDate = false
		return stamped
	})
}

// Toggle flips completion in one store mutation and one gateway patch.
// Marking done stamps today; reopening clears the stamp.
func (c *Controller) Toggle(ctx context.Context, id string) (*Operation, error) {
	today := c.Today()
	return c.mutate(ctx, KindToggle, id, func(prev task.Task) task.Patch {
		return task.Toggle(prev, today)
	})
}

// Delete removes the task, then deletes the gateway document.
func (c *Controller) Delete(ctx context.Context, id string) (*Operation, error) {
	c.mu.Lock()
	key := c.resolve(id)
	prev, err := c.store.Remove(key)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	op := c.issue(KindDelete, key)
	dep := c.pendingCreate(key)
	c.mu.Unlock()

	go c.run(ctx, op, dep,
		func(ctx context.Context, remoteID string) error {
			return c.gateway.Delete(ctx, remoteID)
		},
		nil,
		func() {
			prev.ID = c.resolve(op.issuedID)
			if !c.store.Has(prev.ID) {
				_ = c.store.Insert(prev)
			}
		},
	)
	return op, nil
}

func (c *Controller) mutate(ctx context.Context, kind Kind, id string, build func(task.Task) task.Patch) (*Operation, error) {
	c.mu.Lock()
	key := c.resolve(id)
	prev, err := c.store.Get(key)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	p := build(prev)
	if _, err := c.store.Replace(key, p); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	op := c.issue(kind, key)
	dep := c.pendingCreate(key)
	c.mu.Unlock()

	rp := task.PatchToRecord(p)
	go c.run(ctx, op, dep,
		func(ctx context.Context, remoteID string) error {
			return c.gateway.Patch(ctx, remoteID, rp)
		},
		nil,
		func() {
			current := c.resolve(op.issuedID)
			if c.store.Has(current) {
				_, _ = c.store.Replace(current, task.Replacement(prev))
			}
		},
	)
	return op, nil
}

// issue assigns the next sequence number. Callers hold c.mu.
func (c *Controller) issue(kind Kind, id string) *Operation {
	c.seq++
	op := newOperation(kind, c.seq, id)
	t := c.latest[id]
	if t == nil {
		t = &tracker{}
		c.latest[id] = t
	}
	t.seq = c.seq
	t.pending++
	if IsProvisional(id) {
		c.refs[id]++
	}
	op.start()
	c.inflight.Add(1)
	return op
}

// pendingCreate returns the create an operation on a provisional id must
// wait for. Callers hold c.mu.
func (c *Controller) pendingCreate(id string) *Operation {
	if !IsProvisional(id) {
		return nil
	}
	return c.creates[id]
}

// resolve follows provisional aliases. Callers hold c.mu.
func (c *Controller) resolve(id string) string {
	if durable, ok := c.aliases[id]; ok {
		return durable
	}
	return id
}

// stale reports whether a newer operation on the same task or a newer
// load was issued after op. Callers hold c.mu.
func (c *Controller) stale(op *Operation) bool {
	if op.seq <= c.epoch {
		return true
	}
	t := c.latest[c.resolve(op.issuedID)]
	return t != nil && t.seq > op.seq
}

// settle releases op's hold on its tracker and provisional id. Trackers of
// operations issued before the last load were already discarded. Callers
// hold c.mu.
func (c *Controller) settle(op *Operation) {
	if op.seq > c.epoch {
		key := c.resolve(op.issuedID)
		if t := c.latest[key]; t != nil {
			t.pending--
			if t.pending <= 0 {
				delete(c.latest, key)
			}
		}
	}
	if IsProvisional(op.issuedID) {
		c.refs[op.issuedID]--
		if c.refs[op.issuedID] <= 0 {
			delete(c.refs, op.issuedID)
		}
	}
	c.pruneAliases(aliasRetention)
}

// pruneAliases forgets the oldest committed provisional ids beyond keep,
// skipping any a pending operation still refers to. Callers hold c.mu.
func (c *Controller) pruneAliases(keep int) {
	if len(c.aliasOrder) <= keep {
		return
	}
	excess := len(c.aliasOrder) - keep
	kept := c.aliasOrder[:0]
	for i, id := range c.aliasOrder {
		if i < excess && c.refs[id] == 0 {
			delete(c.aliases, id)
			continue
		}
		kept = append(kept, id)
	}
	c.aliasOrder = kept
}

// commitCreate swaps the provisional id for the durable one. Callers hold c.mu.
func (c *Controller) commitCreate(op *Operation, provisional, durable string) {
	c.aliases[provisional] = durable
	c.aliasOrder = append(c.aliasOrder, provisional)
	delete(c.creates, provisional)
	if t, ok := c.latest[provisional]; ok {
		if d := c.latest[durable]; d != nil {
			d.pending += t.pending
			d.seq = max(d.seq, t.seq)
		} else {
			c.latest[durable] = t
		}
		delete(c.latest, provisional)
	}
	switch {
	case c.store.Has(provisional) && c.store.Has(durable):
		// A load already fetched the new document.
		_, _ = c.store.Remove(provisional)
	case c.store.Has(provisional):
		if err := c.store.Rekey(provisional, durable); err != nil {
			c.logger.Error("failed to rekey provisional task",
				"provisional_id", provisional,
				"task_id", durable,
				"error", err,
			)
		}
	}
	op.rename(durable)
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// run performs the gateway call for op and applies its outcome. onCommit
// and undo run under c.mu.
func (c *Controller) run(
	ctx context.Context,
	op *Operation,
	dep *Operation,
	call func(ctx context.Context, remoteID string) error,
	onCommit func(),
	undo func(),
) {
	defer c.inflight.Done()
	start := time.Now()

	remoteID := op.issuedID
	var err error
	dependent := false
	if dep != nil {
		if depErr := dep.Wait(ctx); depErr != nil {
			dependent = true
			cause := depErr
			var se *SyncError
			if errors.As(depErr, &se) {
				cause = se.Err
			}
			err = fmt.Errorf("%w: %w", ErrCreateFailed, cause)
		} else {
			remoteID = dep.ID()
		}
	}
	if err == nil {
		callCtx, cancel := c.callContext(ctx)
		err = call(callCtx, remoteID)
		cancel()
	}

	c.mu.Lock()
	stale := c.stale(op)
	outcome := OutcomeCommitted
	var syncErr error
	if err == nil {
		if onCommit != nil {
			onCommit()
		}
	} else {
		outcome = OutcomeFailed
		syncErr = &SyncError{Op: op.kind, TaskID: op.issuedID, Seq: op.seq, Err: err}
		rollback := c.policy == PolicyRollback && !dependent && undo != nil
		if op.kind != KindCreate && stale {
			rollback = false
		}
		if rollback {
			undo()
			outcome = OutcomeRolledBack
		}
	}
	taskID := c.resolve(op.issuedID)
	c.settle(op)
	c.mu.Unlock()

	op.finish(syncErr, stale)
	c.report(ctx, op, taskID, outcome, stale, err, time.Since(start))
}

func (c *Controller) report(ctx context.Context, op *Operation, taskID, outcome string, stale bool, err error, elapsed time.Duration) {
	tags := []observability.Tag{observability.T("op", string(op.kind)), observability.T("outcome", outcome)}
	c.metrics.Counter(observability.MetricSyncOperations, 1, tags...)
	c.metrics.Timing(observability.MetricSyncDuration, elapsed, observability.T("op", string(op.kind)))
	if stale {
		c.metrics.Counter(observability.MetricSyncStale, 1, observability.T("op", string(op.kind)))
	}

	attrs := []any{
		"op", op.kind,
		"task_id", taskID,
		"seq", op.seq,
		"stale", stale,
		observability.DurationKey, elapsed.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn("sync operation failed", append(attrs, "outcome", outcome, observability.ErrorKey, err)...)
	} else {
		c.logger.Debug("sync operation committed", attrs...)
	}

	evt := SyncEvent{
		Op:         op.kind,
		TaskID:     taskID,
		Seq:        op.seq,
		Outcome:    outcome,
		Stale:      stale,
		DurationMs: elapsed.Milliseconds(),
	}
	if taskID != op.issuedID {
		evt.ProvisionalID = op.issuedID
	}
	if err != nil {
		evt.Error = err.Error()
	}
	c.publish(ctx, evt)
}
