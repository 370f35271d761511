package database

import (
	"context"
)

// Locker guards a migration run against other processes
// working on the same database
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

type NullLocker struct{}

var _ Locker = NullLocker{}

func (NullLocker) Lock(context.Context) error {
	return nil
}

func (NullLocker) Unlock(context.Context) error {
	return nil
}
