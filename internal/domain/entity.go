package domain

import (
	"fmt"
	"time"

	"seatplan/internal/grid"
)

// Physical size of a student card.
const (
	StudentCardWidthCM  = 70.0
	StudentCardHeightCM = 50.0
)

// StudentSize is the unrotated card footprint in units, rounded up to ticks.
func StudentSize() (w, h float64) {
	return grid.CeilTick(grid.CMToUnits(StudentCardWidthCM)),
		grid.CeilTick(grid.CMToUnits(StudentCardHeightCM))
}

type Plan struct {
	ID          int64     `json:"id"`
	ClassroomID int64     `json:"classroom_id"`
	Name        string    `json:"name"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	GridSize    int       `json:"grid_size"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Student struct {
	ID          int64  `json:"id"`
	ClassroomID int64  `json:"classroom_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Sex         string `json:"sex,omitempty"`
	Level       string `json:"level,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// DisplayName is "First Last", or whichever half is set.
func (s Student) DisplayName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Seat is a table template slot; coordinates are ticks.
type Seat struct {
	ID     int64  `json:"id"`
	PlanID int64  `json:"plan_id"`
	Label  string `json:"label"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// ─────────────────────────────────────────────────────────────
// Entities on the stage
// ─────────────────────────────────────────────────────────────

type EntityKind int

const (
	KindStudent EntityKind = iota
	KindFurniture
)

func (k EntityKind) String() string {
	if k == KindFurniture {
		return "furniture"
	}
	return "student"
}

// FurnitureKey identifies a furniture item either by the client key it was
// created with (never acknowledged) or by its server id.
type FurnitureKey struct {
	serverID int64
	localKey string
}

// Unsynced keys an item that the server has not acknowledged yet.
func Unsynced(localKey string) FurnitureKey { return FurnitureKey{localKey: localKey} }

// Synced keys an item by its server id.
func Synced(serverID int64) FurnitureKey { return FurnitureKey{serverID: serverID} }

func (k FurnitureKey) IsSynced() bool { return k.serverID > 0 }
func (k FurnitureKey) ServerID() int64 { return k.serverID }
func (k FurnitureKey) LocalKey() string { return k.localKey }
func (k FurnitureKey) IsZero() bool { return k.serverID == 0 && k.localKey == "" }
func (k FurnitureKey) Equal(o FurnitureKey) bool { return k == o }

func (k FurnitureKey) String() string {
	if k.IsSynced() {
		return fmt.Sprintf("#%d", k.serverID)
	}
	return "local:" + k.localKey
}

// EntityRef names one entity on the stage.
type EntityRef struct {
	Kind      EntityKind
	StudentID int64
	Furniture FurnitureKey
}

func StudentRef(id int64) EntityRef { return EntityRef{Kind: KindStudent, StudentID: id} }
func FurnitureRef(k FurnitureKey) EntityRef { return EntityRef{Kind: KindFurniture, Furniture: k} }

func (r EntityRef) String() string {
	if r.Kind == KindFurniture {
		return "furniture " + r.Furniture.String()
	}
	return fmt.Sprintf("student %d", r.StudentID)
}

// Shape is anything that occupies a rectangle on the plan.
type Shape interface {
	Ref() EntityRef
	Bounds() Rect
}

// Placement puts a student card on the plan. X and Y are the corner of the
// card's footprint in units; Rotation is the absolute angle in degrees.
type Placement struct {
	StudentID int64   `json:"studentId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SeatID    *int64  `json:"seatId,omitempty"`
	Rotation  float64 `json:"rotation"`
}

func (p Placement) Ref() EntityRef { return StudentRef(p.StudentID) }

func (p Placement) Bounds() Rect {
	w, h := StudentSize()
	return Footprint(p.X, p.Y, w, h, p.Rotation)
}

// Furniture is a catalog object on the plan. W and H are unrotated; X and Y
// are the corner of the rotation-adjusted footprint.
type Furniture struct {
	Key      FurnitureKey `json:"-"`
	DedupID  string       `json:"dedupId"`
	Type     string       `json:"type"`
	Label    string       `json:"label"`
	Color    string       `json:"color,omitempty"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	W        float64      `json:"w"`
	H        float64      `json:"h"`
	Rotation float64      `json:"rotation"`
	Z        int          `json:"z"`
	Rounded  bool         `json:"rounded"`
}

func (f Furniture) Ref() EntityRef { return FurnitureRef(f.Key) }

func (f Furniture) Bounds() Rect {
	return Footprint(f.X, f.Y, f.W, f.H, f.Rotation)
}
