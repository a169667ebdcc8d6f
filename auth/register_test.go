package auth

import (
	"testing"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
	"github.com/stretchr/testify/assert"
)

func newMemStore(t *testing.T) (persistence.Store, *config.Config) {
	cfg := &config.Config{
		GameConfig:        config.GameConfig{MaxPlayers: 4},
		PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: ":memory:"},
	}
	store, err := persistence.NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, cfg
}

func TestEnsureUserCreatesOwnedRoom(t *testing.T) {
	store, cfg := newMemStore(t)

	user, err := EnsureUser(store, cfg, "alice@example.com", "Alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Id)
	assert.Equal(t, "Alice", user.Name)
	assert.NotEmpty(t, user.RoomId)

	err = store.View(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(user.RoomId)
		if err != nil {
			return err
		}
		assert.Equal(t, user.Id, room.OwnerId)
		assert.Equal(t, types.RoomStatusLobby, room.Status)
		assert.Equal(t, 4, room.MaxPlayers)
		assert.Equal(t, 2, room.NextPlayerNumber)

		p, err := tx.GetProgress(user.Id, room.Id)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, p.PlayerNumber)
		assert.Equal(t, "Alice", p.PlayerName)
		return nil
	})
	assert.NoError(t, err)
}

func TestEnsureUserExisting(t *testing.T) {
	store, cfg := newMemStore(t)

	first, err := EnsureUser(store, cfg, "alice@example.com", "Alice")
	assert.NoError(t, err)

	// a second login does not create another room
	again, err := EnsureUser(store, cfg, "alice@example.com", "Alice")
	assert.NoError(t, err)
	assert.Equal(t, first.RoomId, again.RoomId)

	var rooms []*types.Room
	err = store.View(func(tx persistence.Tx) error {
		var err error
		rooms, err = tx.Rooms()
		return err
	})
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)

	// a changed display name is picked up
	renamed, err := EnsureUser(store, cfg, "alice@example.com", "Alicia")
	assert.NoError(t, err)
	assert.Equal(t, "Alicia", renamed.Name)
}
