package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/types"
)

// EnsureUser loads the user with the given id, creating it on first sight.
// Account creation has two side effects: the user gets their own room (in
// lobby state, with the next-player-number counter already at 2) and a
// progress row in it as player number 1.
func EnsureUser(store persistence.Store, cfg *config.Config, userId, name string) (*types.User, error) {
	var user *types.User
	err := store.Update(func(tx persistence.Tx) error {
		existing, err := tx.GetUser(userId)
		if err == nil {
			if name != "" && existing.Name != name {
				existing.Name = name
				existing.UpdatedAt = time.Now()
				if err := tx.PutUser(existing); err != nil {
					return err
				}
			}
			user = existing
			return nil
		}
		if err != persistence.ErrNotFound {
			return err
		}

		now := time.Now()
		room := &types.Room{
			Id:         uuid.NewString(),
			OwnerId:    userId,
			Status:     types.RoomStatusLobby,
			MaxPlayers: cfg.GameConfig.MaxPlayers,
			// slot 1 is taken by the owner's own progress row
			NextPlayerNumber: 2,
			CreatedAt:        now,
		}
		user = &types.User{
			Id:        userId,
			Name:      name,
			RoomId:    room.Id,
			UpdatedAt: now,
		}
		if err := tx.PutUser(user); err != nil {
			return err
		}
		if err := tx.PutRoom(room); err != nil {
			return err
		}
		progress := &types.PlayerProgress{
			Id:           types.ProgressId(userId, room.Id),
			RoomId:       room.Id,
			UserId:       userId,
			PlayerName:   name,
			PlayerNumber: 1,
		}
		return tx.PutProgress(progress)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
