package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/autosave"
	"seatplan/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// flightGuard tests
// ─────────────────────────────────────────────────────────────

func TestFlightGuard_TryLock(t *testing.T) {
	var g autosave.ExportedFlightGuard

	if !g.TryLock("positions") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("positions") {
		t.Fatal("expected second TryLock for same channel to fail")
	}
	if !g.TryLock("furniture") {
		t.Fatal("expected TryLock for different channel to succeed")
	}
	assert.True(t, g.Busy())
	g.Unlock("positions")
	g.Unlock("furniture")
	assert.False(t, g.Busy())
}

func TestFlightGuard_WaitAll(t *testing.T) {
	var g autosave.ExportedFlightGuard
	require.True(t, g.TryLock("positions"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("positions")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// fakes
// ─────────────────────────────────────────────────────────────

type fakeSource struct {
	mu         sync.Mutex
	planID     int64
	placements []domain.Placement
	furniture  []domain.Furniture
}

func (f *fakeSource) PlanID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planID
}

func (f *fakeSource) Placements() []domain.Placement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Placement(nil), f.placements...)
}

func (f *fakeSource) Furniture() []domain.Furniture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Furniture(nil), f.furniture...)
}

type fakeRemote struct {
	mu        sync.Mutex
	positions [][]domain.PositionRecord
	furniture [][]domain.FurnitureRecord
	err       error

	// when gate is set, furniture upserts signal started and wait for gate
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeRemote) UpsertPositions(_ context.Context, _ int64, recs []domain.PositionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, recs)
	return f.err
}

func (f *fakeRemote) UpsertFurniture(_ context.Context, _ int64, recs []domain.FurnitureRecord) error {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.furniture = append(f.furniture, recs)
	return f.err
}

func (f *fakeRemote) positionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.positions)
}

func (f *fakeRemote) furnitureCalls() [][]domain.FurnitureRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.FurnitureRecord(nil), f.furniture...)
}

func (f *fakeRemote) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newItem(dedup string) domain.Furniture {
	return domain.Furniture{Key: domain.Unsynced(dedup), DedupID: dedup, Type: "desk", W: 2, H: 1}
}

func countUID(calls [][]domain.FurnitureRecord, uid string) int {
	n := 0
	for _, recs := range calls {
		for _, r := range recs {
			if r.ClientUID == uid {
				n++
			}
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────
// Syncer tests
// ─────────────────────────────────────────────────────────────

func TestSyncer_DebounceCoalesces(t *testing.T) {
	remote := &fakeRemote{}
	src := &fakeSource{planID: 1, placements: []domain.Placement{{StudentID: 1, X: 1, Y: 1}}}
	s := autosave.New(remote, src, autosave.Options{Delay: 30 * time.Millisecond})

	for i := 0; i < 5; i++ {
		s.PlacementsChanged()
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return remote.positionCalls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, remote.positionCalls(), "a burst becomes one upsert")
	assert.False(t, s.Dirty())
}

func TestSyncer_NoActivePlanSendsNothing(t *testing.T) {
	remote := &fakeRemote{}
	src := &fakeSource{placements: []domain.Placement{{StudentID: 1}}}
	s := autosave.New(remote, src, autosave.Options{})

	require.NoError(t, s.FlushPositions(context.Background()))
	assert.Equal(t, 0, remote.positionCalls())
}

func TestSyncer_NewItemSentOnceWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	remote := &fakeRemote{gate: gate, started: make(chan struct{}, 4)}
	src := &fakeSource{planID: 1, furniture: []domain.Furniture{newItem("a")}}
	s := autosave.New(remote, src, autosave.Options{})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.FlushFurniture(ctx) }()
	<-remote.started

	assert.True(t, s.Pending("a"))
	s.ResetPending()
	assert.True(t, s.Pending("a"), "in-flight marks survive a reset")

	// a second flush while the first is unanswered queues a rerun
	require.NoError(t, s.FlushFurniture(ctx))

	remote.mu.Lock()
	remote.gate = nil
	remote.mu.Unlock()
	close(gate)
	require.NoError(t, <-first)

	require.NoError(t, s.FlushFurniture(ctx))
	assert.Equal(t, 1, countUID(remote.furnitureCalls(), "a"))
}

func TestSyncer_FailureUnmarks(t *testing.T) {
	remote := &fakeRemote{err: errors.New("boom")}
	src := &fakeSource{planID: 1, furniture: []domain.Furniture{newItem("a")}}
	s := autosave.New(remote, src, autosave.Options{})
	ctx := context.Background()

	err := s.FlushFurniture(ctx)
	var syncErr *domain.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, autosave.ChannelFurniture, syncErr.Channel)
	assert.False(t, s.Pending("a"), "a failed request releases its ids")
	assert.True(t, s.Dirty())

	remote.setErr(nil)
	require.NoError(t, s.FlushFurniture(ctx))
	assert.True(t, s.Pending("a"))
	assert.Equal(t, 2, countUID(remote.furnitureCalls(), "a"), "retried after the failure")
}

func TestSyncer_OnCreated(t *testing.T) {
	remote := &fakeRemote{}
	synced := domain.Furniture{Key: domain.Synced(7), DedupID: "s", Type: "door", W: 1, H: 1}
	src := &fakeSource{planID: 1, furniture: []domain.Furniture{synced}}
	created := 0
	s := autosave.New(remote, src, autosave.Options{OnCreated: func() { created++ }})
	ctx := context.Background()

	require.NoError(t, s.FlushFurniture(ctx))
	assert.Equal(t, 0, created, "updates alone trigger no reload")

	src.mu.Lock()
	src.furniture = append(src.furniture, newItem("b"))
	src.mu.Unlock()
	require.NoError(t, s.FlushFurniture(ctx))
	assert.Equal(t, 1, created)

	calls := remote.furnitureCalls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1], 2)
	require.NotNil(t, calls[1][0].ID)
	assert.Equal(t, int64(7), *calls[1][0].ID)
	assert.Nil(t, calls[1][1].ID)
}

func TestSyncer_ForgetAndReset(t *testing.T) {
	remote := &fakeRemote{}
	src := &fakeSource{planID: 1, furniture: []domain.Furniture{newItem("a"), newItem("b")}}
	s := autosave.New(remote, src, autosave.Options{})
	require.NoError(t, s.FlushFurniture(context.Background()))

	s.Forget("a")
	assert.False(t, s.Pending("a"))
	assert.True(t, s.Pending("b"))

	s.ResetPending()
	assert.False(t, s.Pending("b"))
}

func TestSyncer_CloseFlushesDirty(t *testing.T) {
	remote := &fakeRemote{}
	src := &fakeSource{planID: 1, placements: []domain.Placement{{StudentID: 1}}}
	s := autosave.New(remote, src, autosave.Options{Delay: time.Hour})

	s.PlacementsChanged()
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, remote.positionCalls())

	s.PlacementsChanged()
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, remote.positionCalls(), "closed syncer schedules nothing")
}
