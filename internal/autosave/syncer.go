// Package autosave persists layout edits in the background. Placements and
// furniture each have a debounced channel; a burst of edits becomes one
// upsert of the latest state once the channel has been quiet for the delay.
package autosave

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"

	"seatplan/internal/domain"
)

const (
	ChannelPositions = "positions"
	ChannelFurniture = "furniture"

	DefaultDelay   = 600 * time.Millisecond
	DefaultTimeout = 15 * time.Second
)

// Remote is the persistence service's upsert surface.
type Remote interface {
	UpsertPositions(ctx context.Context, planID int64, recs []domain.PositionRecord) error
	UpsertFurniture(ctx context.Context, planID int64, recs []domain.FurnitureRecord) error
}

// Source is the state being saved, read at flush time.
type Source interface {
	PlanID() int64
	Placements() []domain.Placement
	Furniture() []domain.Furniture
}

type Options struct {
	// Delay is the quiet period before a channel flushes.
	Delay time.Duration
	// Timeout bounds one background request.
	Timeout time.Duration
	Logger  *log.Logger
	// OnCreated runs after a furniture flush that carried new items was
	// accepted. The owner is expected to reload and then call ResetPending.
	OnCreated func()
}

type mark int

const (
	markInFlight mark = iota
	markAccepted
)

// Syncer implements service.ChangeNotifier.
type Syncer struct {
	remote    Remote
	src       Source
	logger    *log.Logger
	timeout   time.Duration
	onCreated func()

	debounced map[string]func(func())
	guard     flightGuard

	mu     sync.Mutex
	marks  map[string]mark // dedup id -> state, for unsynced furniture
	dirty  map[string]bool
	again  map[string]bool
	closed bool
}

// New creates a Syncer reading from src and writing to remote.
func New(remote Remote, src Source, opts Options) *Syncer {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Syncer{
		remote:    remote,
		src:       src,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		onCreated: opts.OnCreated,
		debounced: map[string]func(func()){
			ChannelPositions: debounce.New(opts.Delay),
			ChannelFurniture: debounce.New(opts.Delay),
		},
		marks: map[string]mark{},
		dirty: map[string]bool{},
		again: map[string]bool{},
	}
}

// PlacementsChanged schedules a positions flush, resetting the quiet timer.
func (s *Syncer) PlacementsChanged() { s.schedule(ChannelPositions) }

// FurnitureChanged schedules a furniture flush, resetting the quiet timer.
func (s *Syncer) FurnitureChanged() { s.schedule(ChannelFurniture) }

func (s *Syncer) schedule(channel string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.dirty[channel] = true
	s.mu.Unlock()

	s.debounced[channel](func() {
		if !s.isDirty(channel) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.flush(ctx, channel)
	})
}

func (s *Syncer) isDirty(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[channel] && !s.closed
}

// Dirty reports whether either channel has edits not yet accepted.
func (s *Syncer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[ChannelPositions] || s.dirty[ChannelFurniture]
}

// Busy reports whether a request is in flight.
func (s *Syncer) Busy() bool { return s.guard.Busy() }

// Forget drops the dedup mark of a furniture item deleted before it was
// ever acknowledged.
func (s *Syncer) Forget(dedupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, dedupID)
}

// ResetPending clears the marks of accepted creations. Call it after a full
// reload has replaced local state with server ids. Marks of requests still
// in flight survive so they are never sent twice.
func (s *Syncer) ResetPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.marks {
		if m == markAccepted {
			delete(s.marks, id)
		}
	}
}

// Pending reports whether dedupID is marked as sent.
func (s *Syncer) Pending(dedupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marks[dedupID]
	return ok
}

// FlushPositions sends the full placement set now.
func (s *Syncer) FlushPositions(ctx context.Context) error {
	return s.flush(ctx, ChannelPositions)
}

// FlushFurniture sends synced items and not-yet-sent new items now.
func (s *Syncer) FlushFurniture(ctx context.Context) error {
	return s.flush(ctx, ChannelFurniture)
}

// Flush waits for running requests, then sends every dirty channel.
func (s *Syncer) Flush(ctx context.Context) error {
	s.guard.WaitAll(ctx)
	var errs []error
	for _, ch := range []string{ChannelPositions, ChannelFurniture} {
		s.mu.Lock()
		dirty := s.dirty[ch]
		s.mu.Unlock()
		if dirty {
			errs = append(errs, s.flush(ctx, ch))
		}
	}
	s.guard.WaitAll(ctx)
	return errors.Join(errs...)
}

// Close stops scheduling, flushes what is left and waits for it.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

// flush sends one channel. If the channel is already in flight the running
// request is asked to go again with the latest state once it lands, so
// requests on a channel never overlap or reorder.
func (s *Syncer) flush(ctx context.Context, channel string) error {
	if !s.guard.TryLock(channel) {
		s.mu.Lock()
		s.again[channel] = true
		s.mu.Unlock()
		return nil
	}
	defer s.guard.Unlock(channel)

	for {
		s.mu.Lock()
		s.dirty[channel] = false
		s.again[channel] = false
		s.mu.Unlock()

		err := s.send(ctx, channel)

		s.mu.Lock()
		if err != nil {
			s.dirty[channel] = true
		}
		rerun := s.again[channel] && err == nil
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("autosave failed", "channel", channel, "err", err)
			return &domain.SyncError{Channel: channel, Err: err}
		}
		if !rerun {
			return nil
		}
	}
}

func (s *Syncer) send(ctx context.Context, channel string) error {
	planID := s.src.PlanID()
	if planID == 0 {
		return nil
	}
	if channel == ChannelPositions {
		return s.sendPositions(ctx, planID)
	}
	return s.sendFurniture(ctx, planID)
}

func (s *Syncer) sendPositions(ctx context.Context, planID int64) error {
	placements := s.src.Placements()
	if len(placements) == 0 {
		return nil
	}
	recs := make([]domain.PositionRecord, len(placements))
	for i, p := range placements {
		recs[i] = p.Record()
	}
	if err := s.remote.UpsertPositions(ctx, planID, recs); err != nil {
		return err
	}
	s.logger.Debug("positions saved", "plan", planID, "count", len(recs))
	return nil
}

// sendFurniture builds the furniture payload: every synced item, plus the
// unsynced items whose dedup id is not already marked. Those ids are marked
// before the request and unmarked again if it fails.
func (s *Syncer) sendFurniture(ctx context.Context, planID int64) error {
	items := s.src.Furniture()

	s.mu.Lock()
	recs := make([]domain.FurnitureRecord, 0, len(items))
	var created []string
	for _, f := range items {
		if f.Key.IsSynced() {
			recs = append(recs, f.Record())
			continue
		}
		if _, marked := s.marks[f.DedupID]; marked {
			continue
		}
		s.marks[f.DedupID] = markInFlight
		created = append(created, f.DedupID)
		recs = append(recs, f.Record())
	}
	s.mu.Unlock()

	if len(recs) == 0 {
		return nil
	}
	err := s.remote.UpsertFurniture(ctx, planID, recs)

	s.mu.Lock()
	for _, id := range created {
		if _, still := s.marks[id]; !still {
			continue // deleted locally meanwhile
		}
		if err != nil {
			delete(s.marks, id)
		} else {
			s.marks[id] = markAccepted
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Debug("furniture saved", "plan", planID, "count", len(recs), "created", len(created))
	if len(created) > 0 && s.onCreated != nil {
		s.onCreated()
	}
	return nil
}
