// Package redislock guards migration runs of several processes with a Redis key
package redislock

import (
	"context"
	"time"

	"github.com/denismitr/shift/database"
	"github.com/denismitr/shift/internal/retry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultAttempts    = 30
	DefaultAttemptStep = 200 * time.Millisecond
)

// the key is removed only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	Key         string
	TTL         time.Duration
	Attempts    int
	AttemptStep time.Duration
}

func NewDefaultOptions() *Options {
	return &Options{
		Key:         database.DefaultLockKey,
		TTL:         database.DefaultLockFor,
		Attempts:    DefaultAttempts,
		AttemptStep: DefaultAttemptStep,
	}
}

type Locker struct {
	client redis.UniversalClient
	opts   *Options
	token  string
}

var _ database.Locker = (*Locker)(nil)

func New(client redis.UniversalClient, opts *Options) *Locker {
	return &Locker{client: client, opts: opts, token: uuid.NewString()}
}

func (l *Locker) Lock(ctx context.Context) error {
	err := retry.Incremental(ctx, l.opts.AttemptStep, l.opts.Attempts, func(attempt int) error {
		ok, err := l.client.SetNX(ctx, l.opts.Key, l.token, l.opts.TTL).Result()
		if err != nil {
			return errors.Wrap(err, "redis SETNX failed")
		}

		if !ok {
			return retry.Retryable(database.ErrLocked, attempt)
		}

		return nil
	})

	if err != nil {
		return errors.Wrapf(err, "could not obtain [%s] redis lock", l.opts.Key)
	}

	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	released, err := releaseScript.Run(ctx, l.client, []string{l.opts.Key}, l.token).Int64()
	if err != nil {
		return errors.Wrapf(err, "could not release [%s] redis lock", l.opts.Key)
	}

	if released == 0 {
		return errors.Wrapf(database.ErrLockLost, "[%s]", l.opts.Key)
	}

	return nil
}
