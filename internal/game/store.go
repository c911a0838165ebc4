package game

import (
	"context"
	"errors"

	"sco-server/internal/snapshot"
)

// ErrLocked is returned by a Locker when another process holds the game.
var ErrLocked = errors.New("game is locked by another resolver")

// Store persists whole games. Load returns (nil, nil) when the game does not
// exist.
type Store interface {
	Load(ctx context.Context, gameID string) (*snapshot.Snapshot, error)
	Save(ctx context.Context, s *snapshot.Snapshot) error
	List(ctx context.Context) ([]string, error)
}

// Locker provides exclusive resolution of a game across processes.
type Locker interface {
	Lock(ctx context.Context, gameID string) (unlock func(), err error)
}

type Notifier interface {
	Publish(ctx context.Context, event Event)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, Event) {}
