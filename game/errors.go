package game

import "github.com/raceline/typerace/types"

var (
	ErrUserNotAuthenticated = types.NewErrorWithCode("USER_NOT_AUTHENTICATED", "User not authenticated")
	ErrRoomNotFound         = types.NewErrorWithCode("ROOM_NOT_FOUND", "Room not found")
	ErrUserNotFound         = types.NewErrorWithCode("USER_NOT_FOUND", "User not found")
	ErrGameNotFound         = types.NewErrorWithCode("GAME_NOT_FOUND", "Game not found")
	ErrGameNotActive        = types.NewErrorWithCode("GAME_NOT_ACTIVE", "Game not active")

	ErrNotAuthorizedToStartGame  = types.NewErrorWithCode("NOT_AUTHORIZED_TO_START_GAME", "Not authorized to start game")
	ErrNotAuthorizedToResetGame  = types.NewErrorWithCode("NOT_AUTHORIZED_TO_RESET_GAME", "Not authorized to reset game")
	ErrNotAuthorizedToKickPlayer = types.NewErrorWithCode("NOT_AUTHORIZED_TO_KICK_PLAYER", "Not authorized to kick player")
	ErrNotAuthorized             = types.NewErrorWithCode("NOT_AUTHORIZED", "Not authorized")

	ErrGameAlreadyInProgress    = types.NewErrorWithCode("GAME_ALREADY_IN_PROGRESS", "Game already in progress")
	ErrNotEnoughPlayers         = types.NewErrorWithCode("NOT_ENOUGH_PLAYERS", "Not enough players to start a race")
	ErrOwnerCantLeaveActiveGame = types.NewErrorWithCode("OWNER_CANT_LEAVE_ACTIVE_GAME", "Owner cannot leave active game")
	ErrCantJoinActiveGame       = types.NewErrorWithCode("CANT_JOIN_ACTIVE_GAME", "Cannot join active game")
	ErrRoomIsFull               = types.NewErrorWithCode("ROOM_IS_FULL", "Room is full")
)
