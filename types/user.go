package types

import "time"

type User struct {
	Id        string    `json:"id" gorm:"primaryKey"` // e-mail, unique!
	Name      string    `json:"name"`                 // display name
	RoomId    string    `json:"room_id"`              // the user's own room, created at registration
	UpdatedAt time.Time `json:"-"`
}
