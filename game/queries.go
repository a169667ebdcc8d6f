package game

import (
	"time"

	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
)

// CurrentGame returns the room's most recent game, or nil if the room never
// raced.
func (s *Service) CurrentGame(roomId string) (*types.Game, error) {
	var game *types.Game
	err := s.store.View(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		game, err = s.mostRecentGame(tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// RoomState assembles the full projection of a room: the room itself, its
// most recent game and the roster.
func (s *Service) RoomState(roomId string) (*types.RoomState, error) {
	state := &types.RoomState{}
	err := s.store.View(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		state.Room = room
		state.Game, err = s.mostRecentGame(tx, room)
		if err != nil {
			return err
		}
		state.Players, err = tx.ProgressByRoom(roomId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// PlayersForGame returns the progress rows associated with the given game.
func (s *Service) PlayersForGame(gameId string) ([]*types.PlayerProgress, error) {
	var players []*types.PlayerProgress
	err := s.store.View(func(tx persistence.Tx) error {
		var err error
		players, err = tx.ProgressByGame(gameId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}

// TextWindow returns the player's current view of the race text: the expected
// character, the element and chunk around the cursor and the full progress
// row. It returns nil if the player is not part of the game.
func (s *Service) TextWindow(gameId, userId string) (*types.TextWindow, error) {
	var window *types.TextWindow
	err := s.store.View(func(tx persistence.Tx) error {
		game, err := tx.GetGame(gameId)
		if err == persistence.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		p, err := tx.GetProgress(userId, game.RoomId)
		if err == persistence.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if p.GameId != game.Id {
			return nil
		}
		col := game.Chunks.Collection()
		chunk := col[p.Cursor.Chunk]
		window = &types.TextWindow{
			CurrentChar: col.ExpectedChar(p.Cursor),
			Element:     chunk[p.Cursor.Element],
			Chunk:       chunk,
			Progress:    p,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

// PendingEvents returns the undelivered room events of a room.
func (s *Service) PendingEvents(roomId string) ([]*types.RoomEvent, error) {
	var events []*types.RoomEvent
	err := s.store.View(func(tx persistence.Tx) error {
		var err error
		events, err = tx.EventsByRoom(roomId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ConsumeEvent deletes a delivered room event.
func (s *Service) ConsumeEvent(id string) error {
	return s.store.Update(func(tx persistence.Tx) error {
		err := tx.DeleteEvent(id)
		if err == persistence.ErrNotFound {
			return nil
		}
		return err
	})
}

// PurgeEvents drops room events older than the cutoff. Events normally get
// consumed on delivery; this catches notifications whose recipient never
// came back.
func (s *Service) PurgeEvents(cutoff time.Time) error {
	return s.store.Update(func(tx persistence.Tx) error {
		events, err := tx.EventsBefore(cutoff)
		if err != nil {
			return err
		}
		for _, e := range events {
			if err := tx.DeleteEvent(e.Id); err != nil && err != persistence.ErrNotFound {
				return err
			}
		}
		return nil
	})
}
