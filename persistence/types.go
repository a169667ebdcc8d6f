package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/types"
)

// ErrNotFound is returned by point lookups for missing records, regardless of
// the backend.
var ErrNotFound = errors.New("record not found")

// Tx is one atomic, serializable read-modify-write transaction. Every logical
// operation of the game core runs inside exactly one Tx; there is no separate
// locking layer.
type Tx interface {
	GetUser(id string) (*types.User, error)
	PutUser(user *types.User) error
	DeleteUser(id string) error
	Users() ([]*types.User, error)

	GetRoom(id string) (*types.Room, error)
	PutRoom(room *types.Room) error
	RoomByOwner(ownerId string) (*types.Room, error)
	Rooms() ([]*types.Room, error)

	GetGame(id string) (*types.Game, error)
	PutGame(game *types.Game) error
	DeleteGame(id string) error
	LatestGameByRoom(roomId string) (*types.Game, error)

	GetProgress(userId, roomId string) (*types.PlayerProgress, error)
	PutProgress(p *types.PlayerProgress) error
	DeleteProgress(userId, roomId string) error
	ProgressByRoom(roomId string) ([]*types.PlayerProgress, error)
	ProgressByGame(gameId string) ([]*types.PlayerProgress, error)
	ProgressByUser(userId string) ([]*types.PlayerProgress, error)

	PutEvent(e *types.RoomEvent) error
	DeleteEvent(id string) error
	EventsByRoom(roomId string) ([]*types.RoomEvent, error)
	EventsBefore(t time.Time) ([]*types.RoomEvent, error)
}

// Store is the document store boundary.
type Store interface {
	// Update runs fn in a read-write transaction, all-or-nothing.
	Update(fn func(tx Tx) error) error
	// View runs fn in a read-only transaction on a consistent snapshot.
	View(fn func(tx Tx) error) error
	Close() error
}

// NewStore creates the store configured in cfg.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.PersistenceConfig.Type {
	case "", "buntdb":
		return NewBuntStore(cfg)
	case "sqlite", "postgres":
		return NewGormStore(cfg)
	}
	return nil, fmt.Errorf("invalid persistence type %q", cfg.PersistenceConfig.Type)
}
