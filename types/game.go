package types

import (
	"time"
)

const (
	GameStatusCountdown = "countdown"
	GameStatusPlaying   = "playing"
	GameStatusFinished  = "finished"
)

// Game is one race instance belonging to a room. A room references at most
// one active game at a time; superseded games are kept until an explicit
// reset.
type Game struct {
	Id             string    `json:"id" gorm:"primaryKey"`
	RoomId         string    `json:"room_id" gorm:"index"`
	Status         string    `json:"status"`
	Chunks         ChunkList `json:"chunks"` // 5-7 chunks, immutable after creation
	DurationMs     int64     `json:"duration_ms"`
	StartTime      time.Time `json:"start_time"` // zero until the countdown fired
	EndTime        time.Time `json:"end_time"`   // zero until finished
	ScheduledEndId string    `json:"scheduled_end_id"`
	CreatedAt      time.Time `json:"created"`
}

func (g *Game) Duration() time.Duration {
	return time.Duration(g.DurationMs) * time.Millisecond
}
