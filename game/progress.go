package game

import (
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/scheduler"
	"github.com/raceline/typerace/types"
)

// Multiplier returns the streak multiplier: a hard zero below a streak of 3,
// otherwise 1.0 plus 0.1 per character of streak, capped at 3.0. The zero
// floor is deliberate; one mistake collapses the whole multiplier, not just
// the streak.
func Multiplier(streak int) float64 {
	if streak < 3 {
		return 0
	}
	m := float64(streak)/10 + 1
	if m > 3 {
		m = 3
	}
	return m
}

// Distance derives the race progress score from the totals. It is not
// monotonic: after a mistake the multiplier resets, so distance can drop
// sharply.
func Distance(totalTyped, streak int) float64 {
	return float64(totalTyped) * Multiplier(streak)
}

// Apply runs the keystroke-acceptance algorithm on one progress row against
// the collection, without touching the store. It is shared by the
// authoritative path below and by optimistic client-side prediction, so both
// produce identical results for identical inputs. It reports whether the
// character was accepted.
func Apply(p *types.PlayerProgress, col types.ChunkList, typed string) bool {
	collection := col.Collection()
	correct := typed == collection.ExpectedChar(p.Cursor)
	if correct {
		p.TotalTyped++
		p.Streak++
		p.Cursor = collection.Advance(p.Cursor)
	} else {
		p.Streak = 0
	}
	p.Distance = Distance(p.TotalTyped, p.Streak)
	return correct
}

// TypeCharacter applies one typed character to the player's race state,
// authoritatively, in a single transaction. A missing or already finished
// player is a silent no-op, since input legitimately races with the game
// end. When the keystroke finishes the last unfinished player, the pending
// end-of-game timer is cancelled and the game ends in the same transaction.
func (s *Service) TypeCharacter(gameId, userId, typed string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	var (
		roomId       string
		cancelHandle string
	)
	err := s.store.Update(func(tx persistence.Tx) error {
		game, err := tx.GetGame(gameId)
		if err == persistence.ErrNotFound {
			return ErrGameNotActive
		}
		if err != nil {
			return err
		}
		if game.Status != types.GameStatusPlaying {
			return ErrGameNotActive
		}
		roomId = game.RoomId

		p, err := tx.GetProgress(userId, game.RoomId)
		if err == persistence.ErrNotFound {
			return nil // player not in game
		}
		if err != nil {
			return err
		}
		if p.GameId != game.Id || p.Finished {
			return nil // stale row or already finished
		}

		Apply(p, game.Chunks, typed)

		finishedNow := p.Distance >= s.cfg.GameConfig.GoalDistance
		if finishedNow {
			p.Finished = true
			p.FinishTime = s.now()
		}
		if err := tx.PutProgress(p); err != nil {
			return err
		}
		if !finishedNow {
			return nil
		}

		// Early-termination check: if every player of this game is done,
		// end it right here rather than waiting for the timer.
		players, err := tx.ProgressByGame(game.Id)
		if err != nil {
			return err
		}
		for _, q := range players {
			if !q.Finished {
				return nil
			}
		}
		cancelHandle = game.ScheduledEndId
		game.Status = types.GameStatusFinished
		game.EndTime = s.now()
		game.ScheduledEndId = ""
		return tx.PutGame(game)
	})
	if err != nil {
		return err
	}
	if cancelHandle != "" {
		s.sched.Cancel(scheduler.Handle(cancelHandle))
		globals.AppLogger.Debug("all players finished, game ended early", "game", gameId)
	}
	s.notify(roomId)
	return nil
}
