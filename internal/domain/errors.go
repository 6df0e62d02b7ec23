package domain

import "errors"

var (
	// ErrPlacementRejected means no collision-free, in-bounds spot exists
	// within the search bound. State is left untouched.
	ErrPlacementRejected = errors.New("placement rejected: no free spot")
	ErrNotFound          = errors.New("not found")
	ErrNoActivePlan      = errors.New("no active plan")
	ErrUnknownFurniture  = errors.New("unknown furniture type")
	ErrInvalidInput      = errors.New("invalid input")
)

// SyncError is a failed flush on one autosave channel.
type SyncError struct {
	Channel string
	Err     error
}

func (e *SyncError) Error() string { return "sync " + e.Channel + ": " + e.Err.Error() }
func (e *SyncError) Unwrap() error { return e.Err }

// LoadError is a failed full-state fetch. Nothing from it is shown.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load plan: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// DeleteError is a failed remote delete; the entity stays on the plan.
type DeleteError struct {
	Entity EntityRef
	Err    error
}

func (e *DeleteError) Error() string { return "delete " + e.Entity.String() + ": " + e.Err.Error() }
func (e *DeleteError) Unwrap() error { return e.Err }
