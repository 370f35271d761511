package mongodb

import (
	"context"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/retry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultLockAttempts    = 30
	DefaultLockAttemptStep = 200 * time.Millisecond
)

type lockRecord struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Locker holds the lock by inserting a document with a well known id.
// A lock document left behind by a crashed process is taken over
// once it expires.
type Locker struct {
	c        *mongo.Collection
	key      string
	owner    string
	lockFor  time.Duration
	attempts int
	step     time.Duration
}

var _ database.Locker = (*Locker)(nil)

func NewLocker(c *mongo.Collection, key string, lockFor time.Duration) *Locker {
	return &Locker{
		c:        c,
		key:      key,
		owner:    uuid.NewString(),
		lockFor:  lockFor,
		attempts: DefaultLockAttempts,
		step:     DefaultLockAttemptStep,
	}
}

func (l *Locker) Lock(ctx context.Context) error {
	err := retry.Incremental(ctx, l.step, l.attempts, func(attempt int) error {
		now := time.Now().UTC()

		_, err := l.c.InsertOne(ctx, lockRecord{ID: l.key, Owner: l.owner, ExpiresAt: now.Add(l.lockFor)})
		if err == nil {
			return nil
		}

		if !mongo.IsDuplicateKeyError(err) {
			return errors.Wrap(err, "could not insert lock document")
		}

		if _, err := l.c.DeleteOne(ctx, expiredLockFilter(l.key, now)); err != nil {
			return errors.Wrap(err, "could not remove expired lock document")
		}

		return retry.Retryable(database.ErrLocked, attempt)
	})

	if err != nil {
		return errors.Wrapf(err, "could not obtain [%s] mongodb lock", l.key)
	}

	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	res, err := l.c.DeleteOne(ctx, bson.M{database.IDField: l.key, "owner": l.owner})
	if err != nil {
		return errors.Wrapf(err, "could not release [%s] mongodb lock", l.key)
	}

	if res.DeletedCount == 0 {
		return errors.Wrapf(database.ErrLockLost, "[%s]", l.key)
	}

	return nil
}

func expiredLockFilter(key string, now time.Time) bson.M {
	return bson.M{
		database.IDField: key,
		"expires_at":     bson.M{"$lt": now},
	}
}
