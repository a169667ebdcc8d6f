package game

import (
	"fmt"
	"sort"

	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
)

// JoinRoom adds the user to the room's roster with the next compact player
// number. Joining a room the user is already in is a no-op. The owner of a
// room that is mid-race may not join elsewhere, and nobody else may join a
// room that is mid-race.
func (s *Service) JoinRoom(roomId, userId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	err := s.store.Update(func(tx persistence.Tx) error {
		_, err := tx.GetProgress(userId, roomId)
		if err == nil {
			return nil // already in room
		}
		if err != persistence.ErrNotFound {
			return err
		}

		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		isOwner := room.OwnerId == userId
		if isOwner && room.Status == types.RoomStatusPlaying {
			return ErrOwnerCantLeaveActiveGame
		}
		if room.Status == types.RoomStatusPlaying {
			return ErrCantJoinActiveGame
		}
		if room.NextPlayerNumber > room.MaxPlayers {
			return ErrRoomIsFull
		}

		user, err := tx.GetUser(userId)
		if err == persistence.ErrNotFound {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		p := &types.PlayerProgress{
			Id:           types.ProgressId(userId, roomId),
			RoomId:       roomId,
			UserId:       userId,
			PlayerName:   user.Name,
			PlayerNumber: room.NextPlayerNumber,
		}
		if err := tx.PutProgress(p); err != nil {
			return err
		}
		room.NextPlayerNumber++
		return tx.PutRoom(room)
	})
	if err != nil {
		return err
	}
	s.notify(roomId)
	return nil
}

// LeaveRoom removes the user from the room's roster and compacts the
// remaining player numbers.
func (s *Service) LeaveRoom(roomId, userId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	err := s.store.Update(func(tx persistence.Tx) error {
		return removeAndCompact(tx, roomId, userId)
	})
	if err != nil {
		return err
	}
	s.notify(roomId)
	return nil
}

// KickPlayer removes the target from the roster (owner only) and leaves a
// directed room event for the kicked player.
func (s *Service) KickPlayer(roomId, targetUserId, userId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	err := s.store.Update(func(tx persistence.Tx) error {
		room, err := tx.GetRoom(roomId)
		if err == persistence.ErrNotFound {
			return ErrNotAuthorizedToKickPlayer
		}
		if err != nil {
			return err
		}
		if !s.mayAdministrate(room, userId) {
			return ErrNotAuthorizedToKickPlayer
		}
		if err := removeAndCompact(tx, roomId, targetUserId); err != nil {
			return err
		}
		filter := fmt.Sprintf("Target.Id == %q", targetUserId)
		event, err := types.NewRoomEvent(roomId, types.EventNamePlayerKicked, userId, targetUserId, filter, s.now())
		if err != nil {
			return err
		}
		return tx.PutEvent(event)
	})
	if err != nil {
		return err
	}
	globals.AppLogger.Info("player kicked", "room", roomId, "target", targetUserId)
	s.notify(roomId)
	return nil
}

// CleanupProgress removes the user's roster rows from every room except the
// room currently being visited and the user's own room. Rooms a user reached
// via shared links would otherwise accumulate stale entries.
func (s *Service) CleanupProgress(userId, visitedRoomId string) error {
	if userId == "" {
		return ErrUserNotAuthenticated
	}
	affected := make([]string, 0)
	err := s.store.Update(func(tx persistence.Tx) error {
		rows, err := tx.ProgressByUser(userId)
		if err != nil {
			return err
		}

		ownRoomId := ""
		visited, err := tx.GetRoom(visitedRoomId)
		if err == nil && visited.OwnerId == userId {
			ownRoomId = visitedRoomId
		} else {
			ownRoom, err := tx.RoomByOwner(userId)
			if err == nil {
				ownRoomId = ownRoom.Id
			} else if err != persistence.ErrNotFound {
				return err
			}
		}

		for _, p := range rows {
			if p.RoomId == visitedRoomId || (ownRoomId != "" && p.RoomId == ownRoomId) {
				continue
			}
			if err := removeAndCompact(tx, p.RoomId, userId); err != nil {
				return err
			}
			affected = append(affected, p.RoomId)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, roomId := range affected {
		s.notify(roomId)
	}
	return nil
}

// removeAndCompact deletes the target's progress row and reassigns the
// remaining players' numbers to the contiguous range 1..N in ascending slot
// order, only writing rows whose slot actually changed. The room's
// next-player-number counter is set to N+1. An absent target is a no-op.
func removeAndCompact(tx persistence.Tx, roomId, userId string) error {
	players, err := tx.ProgressByRoom(roomId)
	if err != nil {
		return err
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].PlayerNumber < players[j].PlayerNumber
	})

	found := false
	remaining := make([]*types.PlayerProgress, 0, len(players))
	for _, p := range players {
		if p.UserId == userId {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return nil
	}

	if err := tx.DeleteProgress(userId, roomId); err != nil && err != persistence.ErrNotFound {
		return err
	}

	for i, p := range remaining {
		if n := i + 1; p.PlayerNumber != n {
			p.PlayerNumber = n
			if err := tx.PutProgress(p); err != nil {
				return err
			}
		}
	}

	room, err := tx.GetRoom(roomId)
	if err == persistence.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	room.NextPlayerNumber = len(remaining) + 1
	return tx.PutRoom(room)
}
