package storage

import "seatplan/internal/domain"

// Store bundles the SQL stores into a domain.Store.
type Store struct {
	*PlanStore
	*SeatStore
	*PositionStore
	*FurnitureStore
	*RosterStore
	db *DB
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{
		PlanStore:      NewPlanStore(db),
		SeatStore:      NewSeatStore(db),
		PositionStore:  NewPositionStore(db),
		FurnitureStore: NewFurnitureStore(db),
		RosterStore:    NewRosterStore(db),
		db:             db,
	}
}

func (s *Store) Close() error { return s.db.Close() }
