package filter

// Env is the environment a room event's target filter expression is
// evaluated in. Target is the user the event would be delivered to.
type Env struct {
	Room    Room
	Source  User
	Target  User
	Name    string
	Created int64
}

type Room struct {
	Id      string
	OwnerId string
	Status  string
}

type User struct {
	Id   string
	Name string
}
