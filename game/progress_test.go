package game

import (
	"testing"
	"time"

	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/text"
	"github.com/raceline/typerace/types"
	"github.com/stretchr/testify/assert"
)

func TestMultiplier(t *testing.T) {
	assert.Equal(t, 0.0, Multiplier(0))
	assert.Equal(t, 0.0, Multiplier(2))
	assert.Equal(t, 1.3, Multiplier(3))
	assert.Equal(t, 2.0, Multiplier(10))
	assert.Equal(t, 3.0, Multiplier(20))
	assert.Equal(t, 3.0, Multiplier(30))
}

func TestDistanceNotMonotonic(t *testing.T) {
	assert.Equal(t, 90.0, Distance(30, 30))
	// a single mistake zeroes the multiplier and with it the whole distance
	assert.Equal(t, 0.0, Distance(30, 0))
}

func TestApply(t *testing.T) {
	col := types.ChunkList{text.ParseChunk("ab cd")}
	p := &types.PlayerProgress{}

	assert.True(t, Apply(p, col, "a"))
	assert.Equal(t, 1, p.TotalTyped)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, text.Cursor{Chunk: 0, Element: 0, Letter: 1}, p.Cursor)
	assert.Equal(t, 0.0, p.Distance)

	assert.True(t, Apply(p, col, "b"))
	assert.True(t, Apply(p, col, " "))
	assert.Equal(t, 3, p.Streak)
	assert.InDelta(t, 3.9, p.Distance, 1e-9)
	assert.Equal(t, text.Cursor{Chunk: 0, Element: 2, Letter: 0}, p.Cursor)

	// wrong character: streak and distance collapse, cursor stays put
	assert.False(t, Apply(p, col, "x"))
	assert.Equal(t, 3, p.TotalTyped)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0.0, p.Distance)
	assert.Equal(t, text.Cursor{Chunk: 0, Element: 2, Letter: 0}, p.Cursor)
}

func seedPlayingGame(t *testing.T, store persistence.Store, roomId, gameId string, chunks types.ChunkList) {
	err := store.Update(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err != nil {
			return err
		}
		room.Status = types.RoomStatusPlaying
		room.CurrentGameId = gameId
		if err := tx.PutRoom(room); err != nil {
			return err
		}
		return tx.PutGame(&types.Game{
			Id:         gameId,
			RoomId:     roomId,
			Status:     types.GameStatusPlaying,
			Chunks:     chunks,
			DurationMs: 60000,
			StartTime:  time.Now(),
			CreatedAt:  time.Now(),
		})
	})
	if err != nil {
		t.Fatal(err)
	}
}

func assignToGame(t *testing.T, store persistence.Store, userId, roomId, gameId string) {
	err := store.Update(func(tx persistence.Tx) error {
		p, err := tx.GetProgress(userId, roomId)
		if err != nil {
			return err
		}
		p.ResetForGame(gameId)
		return tx.PutProgress(p)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTypeCharacter(t *testing.T) {
	svc, _, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))
	seedPlayingGame(t, store, "room1", "game1", types.ChunkList{text.ParseChunk("ab cd")})
	assignToGame(t, store, "alice", "room1", "game1")
	assignToGame(t, store, "bob", "room1", "game1")

	assert.NoError(t, svc.TypeCharacter("game1", "alice", "a"))
	p := getProgress(t, store, "alice", "room1")
	assert.Equal(t, 1, p.TotalTyped)
	assert.Equal(t, 1, p.Streak)

	assert.NoError(t, svc.TypeCharacter("game1", "alice", "z"))
	p = getProgress(t, store, "alice", "room1")
	assert.Equal(t, 1, p.TotalTyped)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0.0, p.Distance)
}

func TestTypeCharacterGameNotActive(t *testing.T) {
	svc, _, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")

	err := svc.TypeCharacter("missing", "alice", "a")
	assert.Equal(t, ErrGameNotActive, err)

	// a countdown game does not accept input either
	err = store.Update(func(tx persistence.Tx) error {
		return tx.PutGame(&types.Game{
			Id:        "game1",
			RoomId:    "room1",
			Status:    types.GameStatusCountdown,
			Chunks:    types.ChunkList{text.ParseChunk("ab")},
			CreatedAt: time.Now(),
		})
	})
	assert.NoError(t, err)
	err = svc.TypeCharacter("game1", "alice", "a")
	assert.Equal(t, ErrGameNotActive, err)
}

func TestTypeCharacterSilentNoOps(t *testing.T) {
	svc, _, store := newTestService(t)
	seedRoom(t, store, "room1", "alice")
	seedPlayingGame(t, store, "room1", "game1", types.ChunkList{text.ParseChunk("ab cd")})

	// player never joined the game
	assert.NoError(t, svc.TypeCharacter("game1", "stranger", "a"))

	// roster row still points at an older game
	assignToGame(t, store, "alice", "room1", "old-game")
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "a"))
	p := getProgress(t, store, "alice", "room1")
	assert.Equal(t, 0, p.TotalTyped)

	// already finished players are ignored
	assignToGame(t, store, "alice", "room1", "game1")
	err := store.Update(func(tx persistence.Tx) error {
		row, err := tx.GetProgress("alice", "room1")
		if err != nil {
			return err
		}
		row.Finished = true
		return tx.PutProgress(row)
	})
	assert.NoError(t, err)
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "a"))
	p = getProgress(t, store, "alice", "room1")
	assert.Equal(t, 0, p.TotalTyped)
}

func TestTypeCharacterEarlyTermination(t *testing.T) {
	svc, sched, store := newTestService(t)
	svc.cfg.GameConfig.GoalDistance = 1
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))
	seedPlayingGame(t, store, "room1", "game1", types.ChunkList{text.ParseChunk("abcd")})
	assignToGame(t, store, "alice", "room1", "game1")
	assignToGame(t, store, "bob", "room1", "game1")

	err := store.Update(func(tx persistence.Tx) error {
		game, err := tx.GetGame("game1")
		if err != nil {
			return err
		}
		game.ScheduledEndId = "end-handle"
		if err := tx.PutGame(game); err != nil {
			return err
		}
		bob, err := tx.GetProgress("bob", "room1")
		if err != nil {
			return err
		}
		bob.Finished = true
		bob.FinishTime = time.Now()
		return tx.PutProgress(bob)
	})
	assert.NoError(t, err)

	// the streak floor keeps the first two keystrokes at distance zero
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "a"))
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "b"))
	assert.Equal(t, types.GameStatusPlaying, getGame(t, store, "game1").Status)

	// the third accepted keystroke crosses the goal, alice was the last
	// unfinished player, so the game ends and the timer is cancelled
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "c"))
	game := getGame(t, store, "game1")
	assert.Equal(t, types.GameStatusFinished, game.Status)
	assert.Empty(t, game.ScheduledEndId)
	assert.False(t, game.EndTime.IsZero())
	assert.Equal(t, 1, sched.cancelCount())

	p := getProgress(t, store, "alice", "room1")
	assert.True(t, p.Finished)
	assert.False(t, p.FinishTime.IsZero())

	// the room deliberately stays in playing state
	assert.Equal(t, types.RoomStatusPlaying, getRoom(t, store, "room1").Status)

	// input after the end is rejected
	assert.Equal(t, ErrGameNotActive, svc.TypeCharacter("game1", "alice", "d"))
}

func TestTypeCharacterFinishDoesNotEndWithOthersRacing(t *testing.T) {
	svc, sched, store := newTestService(t)
	svc.cfg.GameConfig.GoalDistance = 1
	seedRoom(t, store, "room1", "alice")
	seedUser(t, store, "bob")
	assert.NoError(t, svc.JoinRoom("room1", "bob"))
	seedPlayingGame(t, store, "room1", "game1", types.ChunkList{text.ParseChunk("abcd")})
	assignToGame(t, store, "alice", "room1", "game1")
	assignToGame(t, store, "bob", "room1", "game1")

	assert.NoError(t, svc.TypeCharacter("game1", "alice", "a"))
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "b"))
	assert.NoError(t, svc.TypeCharacter("game1", "alice", "c"))

	assert.True(t, getProgress(t, store, "alice", "room1").Finished)
	assert.Equal(t, types.GameStatusPlaying, getGame(t, store, "game1").Status)
	assert.Equal(t, 0, sched.cancelCount())
}
