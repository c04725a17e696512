package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"investwizard/internal/domain"
)

// CycleState names the stage a source's cycle is currently in.
type CycleState string

const (
	StateIdle       CycleState = "IDLE"
	StateFetching   CycleState = "FETCHING"
	StateDeduping   CycleState = "DEDUPING"
	StatePersisting CycleState = "PERSISTING"
	StateEnriching  CycleState = "ENRICHING"
	StateAlerting   CycleState = "ALERTING"
	StateError      CycleState = "ERROR"
)

// ErrBusy is returned when a cycle is requested for a source whose previous
// cycle has not finished.
var ErrBusy = errors.New("cycle already running for source")

// lane is the per-source state machine. Only the goroutine that acquired
// the lane advances it; readers see a consistent snapshot.
type lane struct {
	mu    sync.Mutex
	state CycleState
}

func (l *lane) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle && l.state != "" {
		return false
	}
	l.state = StateFetching
	return true
}

func (l *lane) set(state CycleState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *lane) current() CycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == "" {
		return StateIdle
	}
	return l.state
}

// Orchestrator serializes cycles per source through a registry of lanes.
// Overlapping requests for the same source are rejected, never queued.
type Orchestrator struct {
	pipeline *Pipeline
	logger   *slog.Logger

	mu    sync.Mutex
	lanes map[domain.Source]*lane
	wg    sync.WaitGroup
}

// NewOrchestrator builds the registry over the pipeline runner.
func NewOrchestrator(pipeline *Pipeline, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		pipeline: pipeline,
		logger:   logger,
		lanes:    make(map[domain.Source]*lane),
	}
}

func (o *Orchestrator) lane(source domain.Source) *lane {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.lanes[source]
	if !ok {
		l = &lane{state: StateIdle}
		o.lanes[source] = l
	}
	return l
}

// RunCycle executes one cycle for the source synchronously. Returns ErrBusy
// when the source's previous cycle is still in flight.
func (o *Orchestrator) RunCycle(ctx context.Context, source domain.Source) error {
	l := o.lane(source)
	if !l.tryAcquire() {
		return ErrBusy
	}
	o.runLocked(ctx, source, l)
	return nil
}

// Trigger starts a cycle for the source in the background. The caller gets
// an immediate accepted-or-busy answer; the cycle itself runs on ctx, which
// should be the process context rather than a request context.
func (o *Orchestrator) Trigger(ctx context.Context, source domain.Source) error {
	l := o.lane(source)
	if !l.tryAcquire() {
		return ErrBusy
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runLocked(ctx, source, l)
	}()
	return nil
}

// DispatchAll starts one cycle for every known source without waiting for
// any of them. Busy sources are skipped, so a slow or hung cycle on one
// source never delays the others' scheduled cycles.
func (o *Orchestrator) DispatchAll(ctx context.Context) {
	for _, source := range o.pipeline.scrapers.Sources() {
		l := o.lane(source)
		if !l.tryAcquire() {
			o.logger.Warn("skipping busy source", "source", string(source), "state", string(l.current()))
			continue
		}
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.runLocked(ctx, source, l)
		}()
	}
}

// Wait blocks until every in-flight background cycle has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// States snapshots the current stage of every known source.
func (o *Orchestrator) States() map[domain.Source]CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	states := make(map[domain.Source]CycleState, len(o.lanes))
	for source, l := range o.lanes {
		states[source] = l.current()
	}
	return states
}

// runLocked owns an acquired lane and always returns it to IDLE.
func (o *Orchestrator) runLocked(ctx context.Context, source domain.Source, l *lane) {
	cycleID := uuid.NewString()
	log := o.logger.With("source", string(source), "cycle_id", cycleID)
	defer l.set(StateIdle)

	log.Info("cycle started")
	stats, err := o.pipeline.Run(ctx, source, func(state CycleState) {
		l.set(state)
		log.Debug("stage transition", "state", string(state))
	})
	if err != nil {
		l.set(StateError)
		log.Error("cycle failed", "error", err,
			"fetched", stats.Fetched, "inserted", stats.Inserted)
		return
	}
	log.Info("cycle complete",
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"enriched", stats.Enriched,
		"placeholders", stats.Placeholders,
		"alerted", stats.Alerted)
}
