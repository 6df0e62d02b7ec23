// Package mongostore keeps plans, rosters and layouts in MongoDB. Integer
// ids, which the wire format requires, come from a counters collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"seatplan/internal/domain"
)

const (
	colPlans     = "plans"
	colStudents  = "students"
	colSeats     = "seats"
	colPositions = "positions"
	colFurniture = "furniture"
	colCounters  = "counters"
)

// Store implements domain.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ domain.Store = (*Store)(nil)

// Open connects to uri and prepares the indexes. dbName overrides the
// database named in the URI path; one of them must be set.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		return nil, fmt.Errorf("connect mongo: no database name: %w", domain.ErrInvalidInput)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// databaseFromURI returns the path segment of a mongodb:// URI.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		colPlans:     {Keys: bson.D{{Key: "classroom_id", Value: 1}, {Key: "created_at", Value: -1}}},
		colStudents:  {Keys: bson.D{{Key: "classroom_id", Value: 1}}},
		colSeats:     {Keys: bson.D{{Key: "plan_id", Value: 1}}},
		colPositions: {Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		colFurniture: {Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "client_uid", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for col, model := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", col, err)
		}
	}
	return nil
}

// nextID hands out the next integer id of a collection.
func (s *Store) nextID(ctx context.Context, col string) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": col},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", col, err)
	}
	return c.Seq, nil
}

// reserveID keeps the counter of col at or above an id chosen by the caller.
func (s *Store) reserveID(ctx context.Context, col string, id int64) error {
	_, err := s.db.Collection(colCounters).UpdateOne(ctx,
		bson.M{"_id": col},
		bson.M{"$max": bson.M{"seq": id}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("reserve %s id: %w", col, err)
	}
	return nil
}

// ─── documents ───────────────────────────────────────────────

type planDoc struct {
	ID          int64     `bson:"_id"`
	ClassroomID int64     `bson:"classroom_id"`
	Name        string    `bson:"name"`
	Width       int       `bson:"width"`
	Height      int       `bson:"height"`
	GridSize    int       `bson:"grid_size"`
	IsActive    bool      `bson:"is_active"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d planDoc) plan() domain.Plan {
	return domain.Plan{
		ID: d.ID, ClassroomID: d.ClassroomID, Name: d.Name, Width: d.Width, Height: d.Height,
		GridSize: d.GridSize, IsActive: d.IsActive, CreatedAt: d.CreatedAt.UTC(),
	}
}

type studentDoc struct {
	ID          int64  `bson:"_id"`
	ClassroomID int64  `bson:"classroom_id"`
	FirstName   string `bson:"first_name"`
	LastName    string `bson:"last_name"`
	Sex         string `bson:"sex"`
	Level       string `bson:"level"`
	Photo       string `bson:"photo"`
}

type seatDoc struct {
	ID     int64  `bson:"_id"`
	PlanID int64  `bson:"plan_id"`
	Label  string `bson:"label"`
	X      int    `bson:"x"`
	Y      int    `bson:"y"`
}

type positionDoc struct {
	PlanID int64 `bson:"plan_id"`
	domain.PositionRecord `bson:",inline"`
}

type furnitureDoc struct {
	ID        int64   `bson:"_id"`
	PlanID    int64   `bson:"plan_id"`
	ClientUID string  `bson:"client_uid"`
	Type      string  `bson:"type"`
	Label     string  `bson:"label"`
	Color     *string `bson:"color,omitempty"`
	X         int     `bson:"x"`
	Y         int     `bson:"y"`
	W         int     `bson:"w"`
	H         int     `bson:"h"`
	Rotation  float64 `bson:"rotation"`
	Z         int     `bson:"z"`
	Rounded   bool    `bson:"rounded"`
}

func (d furnitureDoc) record() domain.FurnitureRecord {
	id := d.ID
	return domain.FurnitureRecord{
		ID: &id, ClientUID: d.ClientUID, Type: d.Type, Label: d.Label, Color: d.Color,
		X: d.X, Y: d.Y, W: d.W, H: d.H, Rotation: d.Rotation, Z: d.Z, Rounded: d.Rounded,
	}
}

// fields are the mutable furniture columns, for $set.
func furnitureFields(r domain.FurnitureRecord) bson.M {
	return bson.M{
		"type": r.Type, "label": r.Label, "color": r.Color,
		"x": r.X, "y": r.Y, "w": r.W, "h": r.H,
		"rotation": r.Rotation, "z": r.Z, "rounded": r.Rounded,
	}
}

// ─── plans ───────────────────────────────────────────────────

func (s *Store) ListPlans(ctx context.Context, classroomID int64) ([]domain.Plan, error) {
	cur, err := s.db.Collection(colPlans).Find(ctx, bson.M{"classroom_id": classroomID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans := make([]domain.Plan, len(docs))
	for i, d := range docs {
		plans[i] = d.plan()
	}
	return plans, nil
}

func (s *Store) GetPlan(ctx context.Context, id int64) (*domain.Plan, error) {
	var d planDoc
	err := s.db.Collection(colPlans).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get plan %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	p := d.plan()
	return &p, nil
}

func (s *Store) CreatePlan(ctx context.Context, p *domain.Plan) error {
	id, err := s.nextID(ctx, colPlans)
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.ID = id
	d := planDoc{
		ID: p.ID, ClassroomID: p.ClassroomID, Name: p.Name, Width: p.Width, Height: p.Height,
		GridSize: p.GridSize, IsActive: p.IsActive, CreatedAt: p.CreatedAt,
	}
	if _, err := s.db.Collection(colPlans).InsertOne(ctx, d); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (s *Store) SetActivePlan(ctx context.Context, classroomID, planID int64) error {
	plans := s.db.Collection(colPlans)
	n, err := plans.CountDocuments(ctx, bson.M{"_id": planID, "classroom_id": classroomID})
	if err != nil {
		return fmt.Errorf("activate plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("activate plan %d: %w", planID, domain.ErrNotFound)
	}
	if _, err := plans.UpdateMany(ctx, bson.M{"classroom_id": classroomID}, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		return fmt.Errorf("deactivate plans: %w", err)
	}
	if _, err := plans.UpdateOne(ctx, bson.M{"_id": planID}, bson.M{"$set": bson.M{"is_active": true}}); err != nil {
		return fmt.Errorf("activate plan: %w", err)
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	res, err := s.db.Collection(colPlans).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete plan %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ─── seats ───────────────────────────────────────────────────

func (s *Store) ListSeats(ctx context.Context, planID int64) ([]domain.Seat, error) {
	cur, err := s.db.Collection(colSeats).Find(ctx, bson.M{"plan_id": planID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	var docs []seatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	seats := make([]domain.Seat, len(docs))
	for i, d := range docs {
		seats[i] = domain.Seat{ID: d.ID, PlanID: d.PlanID, Label: d.Label, X: d.X, Y: d.Y}
	}
	return seats, nil
}

func (s *Store) CreateSeat(ctx context.Context, st *domain.Seat) error {
	id, err := s.nextID(ctx, colSeats)
	if err != nil {
		return err
	}
	st.ID = id
	d := seatDoc{ID: id, PlanID: st.PlanID, Label: st.Label, X: st.X, Y: st.Y}
	if _, err := s.db.Collection(colSeats).InsertOne(ctx, d); err != nil {
		return fmt.Errorf("create seat: %w", err)
	}
	return nil
}

func (s *Store) DeleteSeats(ctx context.Context, planID int64) (int64, error) {
	return s.deleteMany(ctx, colSeats, bson.M{"plan_id": planID})
}

func (s *Store) deleteMany(ctx context.Context, col string, filter bson.M) (int64, error) {
	res, err := s.db.Collection(col).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", col, err)
	}
	return res.DeletedCount, nil
}

// ─── positions ───────────────────────────────────────────────

func (s *Store) ListPositions(ctx context.Context, planID int64) ([]domain.PositionRecord, error) {
	cur, err := s.db.Collection(colPositions).Find(ctx, bson.M{"plan_id": planID},
		options.Find().SetSort(bson.D{{Key: "student_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	var docs []positionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	recs := make([]domain.PositionRecord, len(docs))
	for i, d := range docs {
		recs[i] = d.PositionRecord
	}
	return recs, nil
}

func (s *Store) UpsertPositions(ctx context.Context, planID int64, recs []domain.PositionRecord) error {
	coll := s.db.Collection(colPositions)
	for _, r := range recs {
		filter := bson.M{"plan_id": planID, "student_id": r.StudentID}
		doc := positionDoc{PlanID: planID, PositionRecord: r}
		if _, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("upsert position of student %d: %w", r.StudentID, err)
		}
	}
	return nil
}

func (s *Store) DeletePosition(ctx context.Context, planID, studentID int64) error {
	if _, err := s.db.Collection(colPositions).DeleteOne(ctx, bson.M{"plan_id": planID, "student_id": studentID}); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (s *Store) DeletePositions(ctx context.Context, planID int64) (int64, error) {
	return s.deleteMany(ctx, colPositions, bson.M{"plan_id": planID})
}

// ─── furniture ───────────────────────────────────────────────

func (s *Store) ListFurniture(ctx context.Context, planID int64) ([]domain.FurnitureRecord, error) {
	cur, err := s.db.Collection(colFurniture).Find(ctx, bson.M{"plan_id": planID},
		options.Find().SetSort(bson.D{{Key: "z", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list furniture: %w", err)
	}
	var docs []furnitureDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list furniture: %w", err)
	}
	recs := make([]domain.FurnitureRecord, len(docs))
	for i, d := range docs {
		recs[i] = d.record()
	}
	return recs, nil
}

// UpsertFurniture updates by id when given, else by (plan, client_uid),
// inserting only when neither matches.
func (s *Store) UpsertFurniture(ctx context.Context, planID int64, recs []domain.FurnitureRecord) error {
	coll := s.db.Collection(colFurniture)
	for _, r := range recs {
		set := bson.M{"$set": furnitureFields(r)}
		if r.ID != nil && *r.ID > 0 {
			if _, err := coll.UpdateOne(ctx, bson.M{"_id": *r.ID, "plan_id": planID}, set); err != nil {
				return fmt.Errorf("update furniture %d: %w", *r.ID, err)
			}
			continue
		}
		uid := r.ClientUID
		if uid == "" {
			uid = uuid.NewString()
		}
		res, err := coll.UpdateOne(ctx, bson.M{"plan_id": planID, "client_uid": uid}, set)
		if err != nil {
			return fmt.Errorf("update furniture %s: %w", uid, err)
		}
		if res.MatchedCount > 0 {
			continue
		}
		id, err := s.nextID(ctx, colFurniture)
		if err != nil {
			return err
		}
		d := furnitureDoc{
			ID: id, PlanID: planID, ClientUID: uid, Type: r.Type, Label: r.Label, Color: r.Color,
			X: r.X, Y: r.Y, W: r.W, H: r.H, Rotation: r.Rotation, Z: r.Z, Rounded: r.Rounded,
		}
		if _, err := coll.InsertOne(ctx, d); err != nil {
			return fmt.Errorf("insert furniture %s: %w", uid, err)
		}
	}
	return nil
}

func (s *Store) DeleteFurnitureItem(ctx context.Context, planID, itemID int64) error {
	res, err := s.db.Collection(colFurniture).DeleteOne(ctx, bson.M{"_id": itemID, "plan_id": planID})
	if err != nil {
		return fmt.Errorf("delete furniture: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("furniture %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteFurniture(ctx context.Context, planID int64) (int64, error) {
	return s.deleteMany(ctx, colFurniture, bson.M{"plan_id": planID})
}

// ─── roster ──────────────────────────────────────────────────

func (s *Store) ListStudents(ctx context.Context, classroomID int64) ([]domain.Student, error) {
	cur, err := s.db.Collection(colStudents).Find(ctx, bson.M{"classroom_id": classroomID},
		options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	students := make([]domain.Student, len(docs))
	for i, d := range docs {
		students[i] = domain.Student{
			ID: d.ID, ClassroomID: d.ClassroomID, FirstName: d.FirstName, LastName: d.LastName,
			Sex: d.Sex, Level: d.Level, Photo: d.Photo,
		}
	}
	return students, nil
}

func (s *Store) UpsertStudents(ctx context.Context, classroomID int64, students []domain.Student) error {
	coll := s.db.Collection(colStudents)
	for i := range students {
		st := &students[i]
		st.ClassroomID = classroomID
		if st.ID == 0 {
			id, err := s.nextID(ctx, colStudents)
			if err != nil {
				return err
			}
			st.ID = id
		} else if err := s.reserveID(ctx, colStudents, st.ID); err != nil {
			return err
		}
		d := studentDoc{
			ID: st.ID, ClassroomID: classroomID, FirstName: st.FirstName, LastName: st.LastName,
			Sex: st.Sex, Level: st.Level, Photo: st.Photo,
		}
		if _, err := coll.ReplaceOne(ctx, bson.M{"_id": st.ID}, d, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("upsert student %d: %w", st.ID, err)
		}
	}
	return nil
}
