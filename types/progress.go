package types

import (
	"time"

	"github.com/raceline/typerace/text"
)

// PlayerProgress is one roster row per (user, room). It is created on join
// with all counters zeroed, mutated on every accepted keystroke and deleted
// on leave or kick.
type PlayerProgress struct {
	Id           string      `json:"id" gorm:"primaryKey"` // "<user id>@<room id>"
	RoomId       string      `json:"room_id" gorm:"index"`
	GameId       string      `json:"game_id" gorm:"index"` // empty while in the lobby
	UserId       string      `json:"user_id" gorm:"index"`
	PlayerName   string      `json:"player_name"`   // snapshot of the user's name at join time
	PlayerNumber int         `json:"player_number"` // compact slot 1..max within the room
	Cursor       text.Cursor `json:"cursor" gorm:"embedded;embeddedPrefix:cursor_"`
	TotalTyped   int         `json:"total_typed"`
	Streak       int         `json:"streak"`
	Distance     float64     `json:"distance"`
	Finished     bool        `json:"finished"`
	FinishTime   time.Time   `json:"finish_time"` // zero until finished
}

// ProgressId builds the natural key of a progress row.
func ProgressId(userId, roomId string) string {
	return userId + "@" + roomId
}

// ResetForGame zeroes all counters and re-associates the row with the given
// game (empty gameId puts the row back into lobby state).
func (p *PlayerProgress) ResetForGame(gameId string) {
	p.GameId = gameId
	p.Cursor = text.Cursor{}
	p.TotalTyped = 0
	p.Streak = 0
	p.Distance = 0
	p.Finished = false
	p.FinishTime = time.Time{}
}
