package domain

import (
	"math"

	"seatplan/internal/grid"
)

// Records exchanged with the persistence service. Every coordinate and size
// is an integer tick count.

type PositionRecord struct {
	StudentID int64  `json:"student_id" bson:"student_id"`
	X         int    `json:"x" bson:"x"`
	Y         int    `json:"y" bson:"y"`
	SeatID    *int64 `json:"seat_id,omitempty" bson:"seat_id,omitempty"`
	Rotation  int    `json:"rotation" bson:"rotation"`
}

type FurnitureRecord struct {
	ID        *int64  `json:"id,omitempty" bson:"id,omitempty"`
	ClientUID string  `json:"client_uid" bson:"client_uid"`
	Type      string  `json:"type" bson:"type"`
	Label     string  `json:"label" bson:"label"`
	Color     *string `json:"color,omitempty" bson:"color,omitempty"`
	X         int     `json:"x" bson:"x"`
	Y         int     `json:"y" bson:"y"`
	W         int     `json:"w" bson:"w"`
	H         int     `json:"h" bson:"h"`
	Rotation  float64 `json:"rotation" bson:"rotation"`
	Z         int     `json:"z" bson:"z"`
	Rounded   bool    `json:"rounded" bson:"rounded"`
}

// PlanBundle is everything the editor needs to show one plan.
type PlanBundle struct {
	Plans      []Plan            `json:"plans"`
	ActivePlan *Plan             `json:"active_plan"`
	Seats      []Seat            `json:"seats"`
	Furniture  []FurnitureRecord `json:"furniture"`
	Positions  []PositionRecord  `json:"positions"`
	Students   []Student         `json:"students"`
}

// ResetResult counts the rows a plan reset removed.
type ResetResult struct {
	Positions int64 `json:"positions"`
	Furniture int64 `json:"furniture"`
	Seats     int64 `json:"seats"`
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Record converts the placement for the wire. Rotation is folded into
// 0..359 whole degrees.
func (p Placement) Record() PositionRecord {
	rot := int(math.Round(NormDeg(p.Rotation))) % 360
	return PositionRecord{
		StudentID: p.StudentID,
		X:         grid.ToTicks(p.X),
		Y:         grid.ToTicks(p.Y),
		SeatID:    p.SeatID,
		Rotation:  rot,
	}
}

func PlacementFromRecord(r PositionRecord) Placement {
	return Placement{
		StudentID: r.StudentID,
		X:         grid.FromTicks(r.X),
		Y:         grid.FromTicks(r.Y),
		SeatID:    r.SeatID,
		Rotation:  float64(r.Rotation),
	}
}

// Record converts the item for the wire. Unsynced items carry no id.
func (f Furniture) Record() FurnitureRecord {
	rec := FurnitureRecord{
		ClientUID: f.DedupID,
		Type:      f.Type,
		Label:     f.Label,
		X:         grid.ToTicks(f.X),
		Y:         grid.ToTicks(f.Y),
		W:         grid.ToTicks(f.W),
		H:         grid.ToTicks(f.H),
		Rotation:  math.Mod(Round1(NormDeg(f.Rotation)), 360),
		Z:         f.Z,
		Rounded:   f.Rounded,
	}
	if f.Key.IsSynced() {
		id := f.Key.ServerID()
		rec.ID = &id
	}
	if f.Color != "" {
		c := f.Color
		rec.Color = &c
	}
	return rec
}

func FurnitureFromRecord(r FurnitureRecord) Furniture {
	f := Furniture{
		DedupID:  r.ClientUID,
		Type:     r.Type,
		Label:    r.Label,
		X:        grid.FromTicks(r.X),
		Y:        grid.FromTicks(r.Y),
		W:        grid.FromTicks(r.W),
		H:        grid.FromTicks(r.H),
		Rotation: r.Rotation,
		Z:        r.Z,
		Rounded:  r.Rounded,
	}
	if r.Color != nil {
		f.Color = *r.Color
	}
	if r.ID != nil && *r.ID > 0 {
		f.Key = Synced(*r.ID)
	} else {
		f.Key = Unsynced(r.ClientUID)
	}
	return f
}
