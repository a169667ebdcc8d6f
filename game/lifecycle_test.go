package game

import (
	"testing"

	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
	"github.com/stretchr/testify/assert"
)

func TestStartGameChecks(t *testing.T) {
	svc, _, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")

	_, err := svc.StartGame("room1", "", 0)
	assert.Equal(t, ErrUserNotAuthenticated, err)

	_, err = svc.StartGame("missing", "alice", 0)
	assert.Equal(t, ErrNotAuthorizedToStartGame, err)

	_, err = svc.StartGame("room1", "bob", 0)
	assert.Equal(t, ErrNotAuthorizedToStartGame, err)

	// alone in the room
	_, err = svc.StartGame("room1", "alice", 0)
	assert.Equal(t, ErrNotEnoughPlayers, err)
}

func TestAdminUserMayAdministrate(t *testing.T) {
	svc, _, store := newTestService(t)
	svc.cfg.AdminUser = "root"
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))

	// the admin user passes the owner checks without being on the roster
	_, err := svc.StartGame("room1", "root", 0)
	assert.NoError(t, err)
	assert.NoError(t, svc.ResetGame("room1", "root"))

	_, err = svc.StartGame("room1", "bob", 0)
	assert.Equal(t, ErrNotAuthorizedToStartGame, err)
}

func TestStartGameAndCountdown(t *testing.T) {
	svc, sched, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))

	gameId, err := svc.StartGame("room1", "alice", 0)
	assert.NoError(t, err)
	assert.NotEmpty(t, gameId)

	game := getGame(t, store, gameId)
	assert.Equal(t, types.GameStatusCountdown, game.Status)
	assert.True(t, game.StartTime.IsZero())
	assert.Equal(t, int64(60000), game.DurationMs)
	assert.NotEmpty(t, game.Chunks)

	room := getRoom(t, store, "room1")
	assert.Equal(t, types.RoomStatusPlaying, room.Status)
	assert.Equal(t, gameId, room.CurrentGameId)

	for _, p := range roomPlayers(t, store, "room1") {
		assert.Equal(t, gameId, p.GameId)
		assert.Equal(t, 0, p.TotalTyped)
		assert.False(t, p.Finished)
	}

	// a second start while the race runs is rejected
	_, err = svc.StartGame("room1", "alice", 0)
	assert.Equal(t, ErrGameAlreadyInProgress, err)

	// fire the countdown timer: the game switches to playing and the
	// end-of-game timer is scheduled with its handle stored on the game
	assert.Equal(t, 1, sched.pending())
	sched.fire(t)
	game = getGame(t, store, gameId)
	assert.Equal(t, types.GameStatusPlaying, game.Status)
	assert.False(t, game.StartTime.IsZero())
	assert.NotEmpty(t, game.ScheduledEndId)
	assert.Equal(t, 1, sched.pending())

	// fire the end-of-game timer
	sched.fire(t)
	game = getGame(t, store, gameId)
	assert.Equal(t, types.GameStatusFinished, game.Status)
	assert.False(t, game.EndTime.IsZero())
	assert.Empty(t, game.ScheduledEndId)

	// the room keeps showing the results
	assert.Equal(t, types.RoomStatusPlaying, getRoom(t, store, "room1").Status)
}

func TestEndGameIdempotent(t *testing.T) {
	svc, _, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")

	// unknown game is a no-op
	svc.EndGame("missing")

	err := store.Update(func(tx persistence.Tx) error {
		return tx.PutGame(&types.Game{
			Id:     "game1",
			RoomId: "room1",
			Status: types.GameStatusPlaying,
		})
	})
	assert.NoError(t, err)

	svc.EndGame("game1")
	first := getGame(t, store, "game1")
	assert.Equal(t, types.GameStatusFinished, first.Status)

	// a stale timer firing again must not move the end time
	svc.EndGame("game1")
	second := getGame(t, store, "game1")
	assert.Equal(t, first.EndTime, second.EndTime)
}

func TestBeginPlayAfterReset(t *testing.T) {
	svc, sched, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))

	gameId, err := svc.StartGame("room1", "alice", 0)
	assert.NoError(t, err)

	// reset during the countdown deletes the game
	assert.NoError(t, svc.ResetGame("room1", "alice"))

	// the countdown timer firing afterwards is a no-op
	sched.fire(t)
	err = store.View(func(tx persistence.Tx) error {
		_, err := tx.GetGame(gameId)
		return err
	})
	assert.Equal(t, persistence.ErrNotFound, err)
	assert.Equal(t, 0, sched.pending())
}

func TestResetGame(t *testing.T) {
	svc, sched, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))

	gameId, err := svc.StartGame("room1", "alice", 0)
	assert.NoError(t, err)
	sched.fire(t) // countdown -> playing

	assert.Equal(t, ErrNotAuthorizedToResetGame, svc.ResetGame("room1", "bob"))

	assert.NoError(t, svc.ResetGame("room1", "alice"))
	// the pending end-of-game timer was cancelled
	assert.Equal(t, 1, sched.cancelCount())

	room := getRoom(t, store, "room1")
	assert.Equal(t, types.RoomStatusLobby, room.Status)
	assert.Empty(t, room.CurrentGameId)

	err = store.View(func(tx persistence.Tx) error {
		_, err := tx.GetGame(gameId)
		return err
	})
	assert.Equal(t, persistence.ErrNotFound, err)

	for _, p := range roomPlayers(t, store, "room1") {
		assert.Empty(t, p.GameId)
		assert.Equal(t, 0, p.TotalTyped)
	}
}

func TestPlayAgain(t *testing.T) {
	svc, sched, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))

	gameId, err := svc.StartGame("room1", "alice", 0)
	assert.NoError(t, err)
	sched.fire(t) // countdown -> playing
	sched.fire(t) // end of game

	assert.Equal(t, ErrNotAuthorized, svc.PlayAgain("room1", "bob"))

	assert.NoError(t, svc.PlayAgain("room1", "alice"))
	room := getRoom(t, store, "room1")
	assert.Equal(t, types.RoomStatusLobby, room.Status)
	assert.Empty(t, room.CurrentGameId)

	// the finished game record stays around
	game := getGame(t, store, gameId)
	assert.Equal(t, types.GameStatusFinished, game.Status)

	for _, p := range roomPlayers(t, store, "room1") {
		assert.Empty(t, p.GameId)
		assert.False(t, p.Finished)
	}
}
