package types

import "time"

const (
	RoomStatusLobby   = "lobby"
	RoomStatusPlaying = "playing"
)

// Room is a persistent game lobby. Every user owns exactly one, created at
// registration and never deleted.
type Room struct {
	Id               string    `json:"id" gorm:"primaryKey"`
	OwnerId          string    `json:"owner_id" gorm:"index"`
	Status           string    `json:"status"`
	MaxPlayers       int       `json:"max_players"`
	NextPlayerNumber int       `json:"next_player_number"` // always roster size + 1
	CurrentGameId    string    `json:"current_game_id"`    // empty when no active game
	CreatedAt        time.Time `json:"created"`
}
