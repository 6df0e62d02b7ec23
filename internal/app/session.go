// Package app wires the editing session: the persistence client, the layout
// state, autosave, the interaction controller and periodic reconciliation.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"seatplan/internal/autosave"
	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/interaction"
	"seatplan/internal/service"
)

// Remote is everything a session needs from the persistence service.
// *client.Client implements it.
type Remote interface {
	autosave.Remote
	service.RemoteDeleter
	Fetch(ctx context.Context, classroomID int64, planID *int64) (*domain.PlanBundle, error)
	CreatePlan(ctx context.Context, in service.CreatePlanInput) (int64, error)
	ActivatePlan(ctx context.Context, planID int64) error
	DuplicatePlan(ctx context.Context, planID int64) (int64, error)
	ResetPlan(ctx context.Context, planID int64, full bool) (domain.ResetResult, error)
	DeletePlan(ctx context.Context, planID int64) error
	UpsertStudents(ctx context.Context, classroomID int64, students []domain.Student) error
}

const reloadTimeout = 30 * time.Second

type Options struct {
	ClassroomID int64
	Catalog     *catalog.Catalog
	// Debounce is the autosave quiet period.
	Debounce    time.Duration
	SyncTimeout time.Duration
	// Reconcile is a cron spec for periodic reloads; empty disables them.
	Reconcile string
	Viewport  interaction.Viewport
	Emitter   service.EventEmitter
	Logger    *log.Logger
}

// Session is one user editing one classroom's plans.
type Session struct {
	remote      Remote
	classroomID int64
	logger      *log.Logger
	reconcile   string

	layout *service.LayoutService
	syncer *autosave.Syncer
	ctrl   *interaction.Controller

	reloadMu sync.Mutex // serializes Open and reload

	mu            sync.Mutex
	plans         []domain.Plan
	reloadPending bool
	cron          *cron.Cron
	closed        bool
}

func NewSession(remote Remote, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Viewport.Scale.PxPerUnit == 0 {
		opts.Viewport.Scale = grid.Scale{PxPerUnit: 32}
	}
	s := &Session{
		remote:      remote,
		classroomID: opts.ClassroomID,
		logger:      opts.Logger,
		reconcile:   opts.Reconcile,
	}
	s.layout = service.NewLayoutService(opts.Catalog, remote, opts.Emitter)
	s.syncer = autosave.New(remote, s.layout, autosave.Options{
		Delay:     opts.Debounce,
		Timeout:   opts.SyncTimeout,
		Logger:    opts.Logger.WithPrefix("autosave"),
		OnCreated: s.onCreated,
	})
	s.layout.SetNotifier(s.syncer)
	s.ctrl = interaction.New(s.layout, opts.Viewport)
	return s
}

func (s *Session) ClassroomID() int64                  { return s.classroomID }
func (s *Session) Layout() *service.LayoutService      { return s.layout }
func (s *Session) Controller() *interaction.Controller { return s.ctrl }
func (s *Session) Syncer() *autosave.Syncer            { return s.syncer }

// Plans lists the classroom's plans as of the last load.
func (s *Session) Plans() []domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Plan(nil), s.plans...)
}

// ─── loading ─────────────────────────────────────────────────

// Open loads planID, or the classroom's active plan when nil. Pending edits
// of the current plan are flushed first. On failure nothing changes and the
// error is a *domain.LoadError.
func (s *Session) Open(ctx context.Context, planID *int64) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.layout.PlanID() != 0 {
		if err := s.syncer.Flush(ctx); err != nil {
			s.logger.Warn("flush before open failed", "err", err)
		}
	}
	b, err := s.remote.Fetch(ctx, s.classroomID, planID)
	if err != nil {
		return &domain.LoadError{Err: err}
	}
	if b.ActivePlan == nil {
		return &domain.LoadError{Err: domain.ErrNoActivePlan}
	}
	if err := s.layout.Load(b); err != nil {
		return &domain.LoadError{Err: err}
	}
	s.syncer.ResetPending()

	s.mu.Lock()
	s.plans = b.Plans
	s.reloadPending = false
	s.mu.Unlock()

	s.startReconcile()
	s.logger.Info("plan opened", "plan", b.ActivePlan.ID, "name", b.ActivePlan.Name,
		"students", len(b.Positions), "furniture", len(b.Furniture))
	return nil
}

// Reload refetches the open plan so server ids replace local keys, then
// clears the accepted creation marks. During a gesture it is deferred until
// the gesture ends.
func (s *Session) Reload(ctx context.Context) error {
	if s.ctrl.Busy() {
		s.mu.Lock()
		s.reloadPending = true
		s.mu.Unlock()
		return nil
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	planID := s.layout.PlanID()
	if planID == 0 {
		return domain.ErrNoActivePlan
	}
	since := s.layout.Revision()
	if err := s.syncer.Flush(ctx); err != nil {
		return err
	}
	b, err := s.remote.Fetch(ctx, s.classroomID, &planID)
	if err != nil {
		s.logger.Warn("reload failed", "plan", planID, "err", err)
		return fmt.Errorf("reload plan %d: %w", planID, err)
	}
	res, err := s.layout.Reload(b, since)
	if err != nil {
		return fmt.Errorf("reload plan %d: %w", planID, err)
	}
	if res.Positions {
		s.syncer.PlacementsChanged()
	}
	if res.Furniture {
		s.syncer.FurnitureChanged()
	}
	s.syncer.ResetPending()

	s.mu.Lock()
	s.plans = b.Plans
	s.reloadPending = false
	s.mu.Unlock()
	return nil
}

// onCreated runs inside a furniture flush, so the reload goes to its own
// goroutine.
func (s *Session) onCreated() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := s.Reload(ctx); err != nil {
			s.logger.Warn("reload after save failed", "err", err)
		}
	}()
}

// runPending performs a reload that was deferred by a gesture.
func (s *Session) runPending() {
	s.mu.Lock()
	pending := s.reloadPending
	s.mu.Unlock()
	if pending {
		s.onCreated()
	}
}

// ─── gestures ────────────────────────────────────────────────

// Release ends the current gesture and runs any reload it held back.
func (s *Session) Release(p interaction.Point) interaction.Result {
	res := s.ctrl.Release(p)
	s.runPending()
	return res
}

// Cancel aborts the current gesture and runs any reload it held back.
func (s *Session) Cancel() {
	s.ctrl.Cancel()
	s.runPending()
}

// ─── reconcile ───────────────────────────────────────────────

func (s *Session) startReconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconcile == "" || s.cron != nil || s.closed {
		return
	}
	c := cron.New()
	if _, err := c.AddFunc(s.reconcile, s.reconcileTick); err != nil {
		s.logger.Error("invalid reconcile schedule", "spec", s.reconcile, "err", err)
		return
	}
	c.Start()
	s.cron = c
	s.logger.Debug("reconcile scheduled", "spec", s.reconcile)
}

// reconcileTick reloads when nothing is being dragged or saved.
func (s *Session) reconcileTick() {
	if s.ctrl.Busy() || s.syncer.Busy() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn("reconcile failed", "err", err)
	}
}

// ─── plans ───────────────────────────────────────────────────

// CreatePlan creates a plan in the session's classroom, activates it and
// opens it.
func (s *Session) CreatePlan(ctx context.Context, name string, width, height int) (int64, error) {
	id, err := s.remote.CreatePlan(ctx, service.CreatePlanInput{
		ClassroomID: s.classroomID,
		Name:        name,
		Width:       width,
		Height:      height,
		GridSize:    grid.Subdiv,
	})
	if err != nil {
		return 0, fmt.Errorf("create plan: %w", err)
	}
	return id, s.ActivatePlan(ctx, id)
}

// ActivatePlan makes planID the classroom's active plan and opens it.
func (s *Session) ActivatePlan(ctx context.Context, planID int64) error {
	if err := s.remote.ActivatePlan(ctx, planID); err != nil {
		return fmt.Errorf("activate plan %d: %w", planID, err)
	}
	return s.Open(ctx, &planID)
}

// DuplicatePlan copies the open plan, after saving it, and opens the copy
// without activating it.
func (s *Session) DuplicatePlan(ctx context.Context) (int64, error) {
	planID := s.layout.PlanID()
	if planID == 0 {
		return 0, domain.ErrNoActivePlan
	}
	if err := s.syncer.Flush(ctx); err != nil {
		return 0, err
	}
	id, err := s.remote.DuplicatePlan(ctx, planID)
	if err != nil {
		return 0, fmt.Errorf("duplicate plan %d: %w", planID, err)
	}
	return id, s.Open(ctx, &id)
}

// ResetPlan clears the open plan; full also removes its seats.
func (s *Session) ResetPlan(ctx context.Context, full bool) (domain.ResetResult, error) {
	planID := s.layout.PlanID()
	if planID == 0 {
		return domain.ResetResult{}, domain.ErrNoActivePlan
	}
	if err := s.syncer.Flush(ctx); err != nil {
		s.logger.Warn("flush before reset failed", "err", err)
	}
	res, err := s.remote.ResetPlan(ctx, planID, full)
	if err != nil {
		return res, fmt.Errorf("reset plan %d: %w", planID, err)
	}
	return res, s.Open(ctx, &planID)
}

// DeletePlan deletes planID. Deleting the open plan opens whichever plan the
// classroom shows next.
func (s *Session) DeletePlan(ctx context.Context, planID int64) error {
	open := s.layout.PlanID() == planID
	if err := s.remote.DeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("delete plan %d: %w", planID, err)
	}
	if !open {
		return nil
	}
	err := s.Open(ctx, nil)
	if errors.Is(err, domain.ErrNoActivePlan) {
		s.logger.Info("no plan left to open", "classroom", s.classroomID)
		return nil
	}
	return err
}

// ImportStudents upserts students into the classroom roster and reloads.
func (s *Session) ImportStudents(ctx context.Context, students []domain.Student) error {
	if err := s.remote.UpsertStudents(ctx, s.classroomID, students); err != nil {
		return fmt.Errorf("import students: %w", err)
	}
	if s.layout.PlanID() == 0 {
		return nil
	}
	return s.Reload(ctx)
}

// ─── lifecycle ───────────────────────────────────────────────

// Flush saves both channels now.
func (s *Session) Flush(ctx context.Context) error {
	return s.syncer.Flush(ctx)
}

// Close stops reconciliation, saves what is left and waits for in-flight
// requests.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	return s.syncer.Close(ctx)
}
