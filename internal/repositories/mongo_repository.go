package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

// MongoSessionRepository stores sessions in the "sessions" collection.
type MongoSessionRepository struct {
	coll *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{coll: db.Collection("sessions")}
}

// EnsureIndexes creates the partial unique index that enforces one pending
// request per pair, plus the participant lookup indexes.
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "mentor_id", Value: 1}},
			Options: options.Index().
				SetName("pending_pair_uniq").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.SessionStatusRequested)}),
		},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *MongoSessionRepository) Create(ctx context.Context, session *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("pending session for pair: %w", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *MongoSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return r.findOne(ctx, bson.M{"_id": id}, fmt.Sprintf("session %s", id))
}

func (r *MongoSessionRepository) FindPending(ctx context.Context, studentID, mentorID string) (*models.Session, error) {
	filter := bson.M{
		"student_id": studentID,
		"mentor_id":  mentorID,
		"status":     models.SessionStatusRequested,
	}
	return r.findOne(ctx, filter, "pending session")
}

func (r *MongoSessionRepository) findOne(ctx context.Context, filter bson.M, what string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var s models.Session
	if err := r.coll.FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &s, nil
}

// Update replaces the whole document. Last write wins.
func (r *MongoSessionRepository) Update(ctx context.Context, session *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	session.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", session.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *MongoSessionRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Session, error) {
	return r.list(ctx, bson.M{
		"student_id": studentID,
		"status":     bson.M{"$ne": models.SessionStatusRejected},
	})
}

func (r *MongoSessionRepository) ListByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	return r.list(ctx, bson.M{
		"mentor_id": mentorID,
		"status":    bson.M{"$ne": models.SessionStatusRejected},
	})
}

func (r *MongoSessionRepository) ListDeclined(ctx context.Context, participantID string) ([]*models.Session, error) {
	return r.list(ctx, bson.M{
		"$or":    []bson.M{{"student_id": participantID}, {"mentor_id": participantID}},
		"status": models.SessionStatusRejected,
	})
}

func (r *MongoSessionRepository) list(ctx context.Context, filter bson.M) ([]*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Session, 0)
	for cur.Next(ctx) {
		var s models.Session
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

// MongoMessageRepository stores messages in the "messages" collection. Each
// document carries a seq drawn from the "counters" collection so a
// conversation reads back in insertion order even when timestamps collide.
type MongoMessageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

// mongoMessage is the stored shape of a message.
type mongoMessage struct {
	models.Message `bson:",inline"`
	Seq            int64 `bson:"seq"`
}

const messageCounterID = "messages"

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{
		coll:     db.Collection("messages"),
		counters: db.Collection("counters"),
	}
}

func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "receiver_id", Value: 1},
			{Key: "seq", Value: 1},
		},
	})
	return err
}

func (r *MongoMessageRepository) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate message seq: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoMessageRepository) Create(ctx context.Context, message *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}

	message.CreatedAt = time.Now().UTC()
	_, err = r.coll.InsertOne(ctx, mongoMessage{Message: *message, Seq: seq})
	return err
}

func conversationFilter(participantA, participantB string) bson.M {
	return bson.M{"$or": []bson.M{
		{"sender_id": participantA, "receiver_id": participantB},
		{"sender_id": participantB, "receiver_id": participantA},
	}}
}

func conversationOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
}

func (r *MongoMessageRepository) Conversation(ctx context.Context, participantA, participantB string) ([]*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, conversationFilter(participantA, participantB), conversationOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Message, 0)
	for cur.Next(ctx) {
		var m mongoMessage
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m.Message)
	}
	return out, cur.Err()
}
