package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/scheduler"
	"github.com/raceline/typerace/types"
)

// StartGame creates a new game in countdown state for the given room. Only
// the room owner (or the configured admin user) may start a race, the room
// has to be in lobby state and at least two players have to be present. Every roster member is reset and
// re-associated with the new game; the switch to playing state happens via a
// scheduled transition once the countdown elapsed.
func (s *Service) StartGame(roomId, userId string, duration time.Duration) (string, error) {
	if userId == "" {
		return "", ErrUserNotAuthenticated
	}
	if duration <= 0 {
		duration = s.cfg.GameConfig.DefaultDuration()
	}
	var gameId string
	err := s.store.Update(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrNotAuthorizedToStartGame
		}
		if err != nil {
			return err
		}
		if !s.mayAdministrate(room, userId) {
			return ErrNotAuthorizedToStartGame
		}
		if room.Status != types.RoomStatusLobby {
			return ErrGameAlreadyInProgress
		}
		players, err := tx.ProgressByRoom(roomId)
		if err != nil {
			return err
		}
		if len(players) < 2 {
			return ErrNotEnoughPlayers
		}

		game := &types.Game{
			Id:         uuid.NewString(),
			RoomId:     roomId,
			Status:     types.GameStatusCountdown,
			Chunks:     types.ChunkList(s.selectChunks()),
			DurationMs: duration.Milliseconds(),
			CreatedAt:  s.now(),
		}
		if err := tx.PutGame(game); err != nil {
			return err
		}

		room.Status = types.RoomStatusPlaying
		room.CurrentGameId = game.Id
		if err := tx.PutRoom(room); err != nil {
			return err
		}

		for _, p := range players {
			p.ResetForGame(game.Id)
			if err := tx.PutProgress(p); err != nil {
				return err
			}
		}
		gameId = game.Id
		return nil
	})
	if err != nil {
		return "", err
	}

	id := gameId
	s.sched.After(s.cfg.GameConfig.Countdown(), func() { s.beginPlay(id) })
	globals.AppLogger.Info("game started", "room", roomId, "game", gameId)
	s.notify(roomId)
	return gameId, nil
}

// beginPlay is the timer-fired transition from countdown to playing. A
// vanished game (e.g. reset during the countdown) is a no-op. The end-of-game
// transition is scheduled here and its handle stored on the game so an early
// termination can cancel it.
func (s *Service) beginPlay(gameId string) {
	var (
		roomId   string
		duration time.Duration
		started  bool
	)
	err := s.store.Update(func(tx persistence.Tx) error {
		game, err := tx.GetGame(gameId)
		if err == persistence.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		game.Status = types.GameStatusPlaying
		game.StartTime = s.now()
		roomId = game.RoomId
		duration = game.Duration()
		started = true
		return tx.PutGame(game)
	})
	if err != nil {
		globals.AppLogger.Error("could not start game", "game", gameId, "error", err)
		return
	}
	if !started {
		return
	}

	handle := s.sched.After(duration, func() { s.EndGame(gameId) })
	err = s.store.Update(func(tx persistence.Tx) error {
		game, err := tx.GetGame(gameId)
		if err == persistence.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		game.ScheduledEndId = string(handle)
		return tx.PutGame(game)
	})
	if err != nil {
		globals.AppLogger.Error("could not store scheduled end", "game", gameId, "error", err)
	}
	s.notify(roomId)
}

// EndGame flips the game to finished and records the end time. It is
// idempotent: a missing or already finished game is a no-op, so a stale timer
// firing after an early termination (or after a cancel that lost the race)
// does no harm. The owning room deliberately stays in playing state so the
// results remain visible until the owner acts.
func (s *Service) EndGame(gameId string) {
	var (
		roomId  string
		changed bool
	)
	err := s.store.Update(func(tx persistence.Tx) error {
		game, err := tx.GetGame(gameId)
		if err == persistence.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if game.Status == types.GameStatusFinished {
			return nil
		}
		game.Status = types.GameStatusFinished
		game.EndTime = s.now()
		game.ScheduledEndId = ""
		roomId = game.RoomId
		changed = true
		return tx.PutGame(game)
	})
	if err != nil {
		globals.AppLogger.Error("could not end game", "game", gameId, "error", err)
		return
	}
	if changed {
		globals.AppLogger.Info("game ended", "game", gameId)
		s.notify(roomId)
	}
}

// ResetGame cancels any pending end-of-game timer, discards the room's most
// recent game record, resets the roster and puts the room back into the
// lobby.
func (s *Service) ResetGame(roomId, userId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	var cancelHandle string
	err := s.store.Update(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrNotAuthorizedToResetGame
		}
		if err != nil {
			return err
		}
		if !s.mayAdministrate(room, userId) {
			return ErrNotAuthorizedToResetGame
		}

		game, err := s.mostRecentGame(tx, room)
		if err != nil {
			return err
		}
		if game != nil {
			cancelHandle = game.ScheduledEndId
			if err := tx.DeleteGame(game.Id); err != nil && err != persistence.ErrNotFound {
				return err
			}
		}

		if err := s.resetRoster(tx, roomId); err != nil {
			return err
		}

		room.Status = types.RoomStatusLobby
		room.CurrentGameId = ""
		return tx.PutRoom(room)
	})
	if err != nil {
		return err
	}
	if cancelHandle != "" {
		s.sched.Cancel(scheduler.Handle(cancelHandle))
	}
	s.notify(roomId)
	return nil
}

// PlayAgain puts the room back into the lobby and resets the roster, keeping
// the finished game record around for historical display.
func (s *Service) PlayAgain(roomId, userId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	err := s.store.Update(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrNotAuthorized
		}
		if err != nil {
			return err
		}
		if !s.mayAdministrate(room, userId) {
			return ErrNotAuthorized
		}

		if err := s.resetRoster(tx, roomId); err != nil {
			return err
		}

		room.Status = types.RoomStatusLobby
		room.CurrentGameId = ""
		return tx.PutRoom(room)
	})
	if err != nil {
		return err
	}
	s.notify(roomId)
	return nil
}

// resetRoster zeroes every roster member's counters and clears their game
// association.
func (s *Service) resetRoster(tx persistence.Tx, roomId string) error {
	players, err := tx.ProgressByRoom(roomId)
	if err != nil {
		return err
	}
	for _, p := range players {
		p.ResetForGame("")
		if err := tx.PutProgress(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mostRecentGame(tx persistence.Tx, room *types.Room) (*types.Game, error) {
	if room.CurrentGameId != "" {
		game, err := tx.GetGame(room.CurrentGameId)
		if err == nil {
			return game, nil
		}
		if err != persistence.ErrNotFound {
			return nil, err
		}
	}
	game, err := tx.LatestGameByRoom(room.Id)
	if err == persistence.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}
