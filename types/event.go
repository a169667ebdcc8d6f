package types

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

const (
	EventNamePlayerKicked = "player_kicked"
)

// RoomEvent is an ephemeral directed notification from one user to another,
// scoped to a room. It is consumed and deleted once delivered to its
// recipient.
type RoomEvent struct {
	Id           string    `json:"id" gorm:"primaryKey"`
	RoomId       string    `json:"room_id" gorm:"index"`
	Name         string    `json:"name"`
	FromUserId   string    `json:"from_user_id"`
	ToUserId     string    `json:"to_user_id"`
	TargetFilter string    `json:"target_filter"` // expr filter deciding which client receives the event
	Created      time.Time `json:"created"`
}

func NewRoomEvent(roomId, name, fromUserId, toUserId, targetFilter string, created time.Time) (*RoomEvent, error) {
	e := &RoomEvent{
		RoomId:       roomId,
		Name:         name,
		FromUserId:   fromUserId,
		ToUserId:     toUserId,
		TargetFilter: targetFilter,
		Created:      created,
	}
	if err := e.CreateId(); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateId sets the event id to a hash of the event contents.
func (e *RoomEvent) CreateId() error {
	hash, err := hashstructure.Hash(e, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	e.Id = fmt.Sprintf("%016x", hash)
	return nil
}
