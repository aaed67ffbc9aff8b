package repository

import (
	"context"
	"log"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// SessionMongo provides Mongo-backed persistence for conversation sessions.
// One document per conversation; turns are pushed onto an array.
type SessionMongo struct {
	col      *mongo.Collection
	preamble string
	now      func() time.Time
}

// NewSessionMongo returns a SessionMongo that operates on the "sessions" collection.
func NewSessionMongo(db *mongo.Database, preamble string) *SessionMongo {
	return &SessionMongo{
		col:      db.Collection("sessions"),
		preamble: preamble,
		now:      time.Now,
	}
}

// GetOrCreate upserts the session document and returns it.
func (r *SessionMongo) GetOrCreate(ctx context.Context, id string) (models.Session, error) {
	now := r.now().UTC()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var s models.Session
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$setOnInsert": r.insertFields(now),
	}, opts).Decode(&s)
	if err != nil {
		log.Printf("[Session Repository] Error loading session %s: %v", id, err)
		return models.Session{}, errors.Wrapf(err, "load session %s", id)
	}
	return s, nil
}

// Append pushes turns in order, creating the session if it is missing.
func (r *SessionMongo) Append(ctx context.Context, id string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	now := r.now().UTC()
	insert := r.insertFields(now)
	delete(insert, "turns")
	delete(insert, "updated_at")

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push":        bson.M{"turns": bson.M{"$each": turns}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": insert,
	}, options.Update().SetUpsert(true))
	if err != nil {
		log.Printf("[Session Repository] Error appending %d turns to %s: %v", len(turns), id, err)
		return errors.Wrapf(err, "append to session %s", id)
	}
	log.Printf("[Session Repository] Appended %d turns to %s", len(turns), id)
	return nil
}

// Reset removes the session document.
func (r *SessionMongo) Reset(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrapf(err, "reset session %s", id)
	}
	log.Printf("[Session Repository] Reset session %s", id)
	return nil
}

// Ping reports whether the backing database answers.
func (r *SessionMongo) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}

func (r *SessionMongo) insertFields(now time.Time) bson.M {
	return bson.M{
		"preamble":   r.preamble,
		"turns":      bson.A{},
		"created_at": now,
		"updated_at": now,
	}
}
