package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/types"
	"github.com/tidwall/buntdb"
)

// BuntStore is the primary document store, a single buntdb file (or
// ":memory:"). buntdb transactions are serializable, which is exactly the
// atomicity guarantee the game core relies on.
type BuntStore struct {
	db *buntdb.DB
}

func NewBuntStore(cfg *config.Config) (Store, error) {
	name := cfg.PersistenceConfig.DSN
	if name == "" {
		name = ":memory:"
	}
	db, err := buntdb.Open(name)
	if err != nil {
		return nil, err
	}
	indexes := map[string][2]string{
		"rooms_owner":    {"room:*", "owner_id"},
		"games_room":     {"game:*", "room_id"},
		"progress_room":  {"progress:*", "room_id"},
		"progress_game":  {"progress:*", "game_id"},
		"progress_user":  {"progress:*", "user_id"},
		"events_room":    {"event:*", "room_id"},
		"events_created": {"event:*", "created"},
	}
	for name, def := range indexes {
		if err := db.CreateIndex(name, def[0], buntdb.IndexJSON(def[1])); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return fn(&buntTx{tx: tx})
	})
}

func (s *BuntStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(tx *buntdb.Tx) error {
		return fn(&buntTx{tx: tx})
	})
}

func (s *BuntStore) Close() error {
	return s.db.Close()
}

type buntTx struct {
	tx *buntdb.Tx
}

func userKey(id string) string     { return "user:" + id }
func roomKey(id string) string     { return "room:" + id }
func gameKey(id string) string     { return "game:" + id }
func progressKey(id string) string { return "progress:" + id }
func eventKey(id string) string    { return "event:" + id }

func (t *buntTx) get(key string, v interface{}) error {
	raw, err := t.tx.Get(key)
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func (t *buntTx) put(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = t.tx.Set(key, string(raw), nil)
	return err
}

func (t *buntTx) delete(key string) error {
	_, err := t.tx.Delete(key)
	if err == buntdb.ErrNotFound {
		return ErrNotFound
	}
	return err
}

// ascendEqual collects all values of an index where the indexed field equals
// the given value. The values are collected first so callers may modify the
// database afterwards (buntdb forbids writes during iteration).
func (t *buntTx) ascendEqual(index, field, value string) ([]string, error) {
	pivot := fmt.Sprintf(`{%q:%q}`, field, value)
	vals := make([]string, 0)
	err := t.tx.AscendEqual(index, pivot, func(key, val string) bool {
		vals = append(vals, val)
		return true
	})
	return vals, err
}

func (t *buntTx) GetUser(id string) (*types.User, error) {
	user := &types.User{}
	if err := t.get(userKey(id), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (t *buntTx) PutUser(user *types.User) error {
	return t.put(userKey(user.Id), user)
}

func (t *buntTx) DeleteUser(id string) error {
	return t.delete(userKey(id))
}

func (t *buntTx) Users() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := t.tx.AscendKeys("user:*", func(key, val string) bool {
		user := &types.User{}
		if err := json.Unmarshal([]byte(val), user); err == nil {
			users = append(users, user)
		}
		return true
	})
	return users, err
}

func (t *buntTx) GetRoom(id string) (*types.Room, error) {
	room := &types.Room{}
	if err := t.get(roomKey(id), room); err != nil {
		return nil, err
	}
	return room, nil
}

func (t *buntTx) PutRoom(room *types.Room) error {
	return t.put(roomKey(room.Id), room)
}

func (t *buntTx) RoomByOwner(ownerId string) (*types.Room, error) {
	vals, err := t.ascendEqual("rooms_owner", "owner_id", ownerId)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	room := &types.Room{}
	if err := json.Unmarshal([]byte(vals[0]), room); err != nil {
		return nil, err
	}
	return room, nil
}

func (t *buntTx) Rooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := t.tx.AscendKeys("room:*", func(key, val string) bool {
		room := &types.Room{}
		if err := json.Unmarshal([]byte(val), room); err == nil {
			rooms = append(rooms, room)
		}
		return true
	})
	return rooms, err
}

func (t *buntTx) GetGame(id string) (*types.Game, error) {
	game := &types.Game{}
	if err := t.get(gameKey(id), game); err != nil {
		return nil, err
	}
	return game, nil
}

func (t *buntTx) PutGame(game *types.Game) error {
	return t.put(gameKey(game.Id), game)
}

func (t *buntTx) DeleteGame(id string) error {
	return t.delete(gameKey(id))
}

func (t *buntTx) LatestGameByRoom(roomId string) (*types.Game, error) {
	vals, err := t.ascendEqual("games_room", "room_id", roomId)
	if err != nil {
		return nil, err
	}
	var latest *types.Game
	for _, val := range vals {
		game := &types.Game{}
		if err := json.Unmarshal([]byte(val), game); err != nil {
			continue
		}
		if latest == nil || game.CreatedAt.After(latest.CreatedAt) {
			latest = game
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (t *buntTx) GetProgress(userId, roomId string) (*types.PlayerProgress, error) {
	p := &types.PlayerProgress{}
	if err := t.get(progressKey(types.ProgressId(userId, roomId)), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *buntTx) PutProgress(p *types.PlayerProgress) error {
	if p.Id == "" {
		p.Id = types.ProgressId(p.UserId, p.RoomId)
	}
	return t.put(progressKey(p.Id), p)
}

func (t *buntTx) DeleteProgress(userId, roomId string) error {
	return t.delete(progressKey(types.ProgressId(userId, roomId)))
}

func (t *buntTx) progressByIndex(index, field, value string) ([]*types.PlayerProgress, error) {
	vals, err := t.ascendEqual(index, field, value)
	if err != nil {
		return nil, err
	}
	rows := make([]*types.PlayerProgress, 0, len(vals))
	for _, val := range vals {
		p := &types.PlayerProgress{}
		if err := json.Unmarshal([]byte(val), p); err == nil {
			rows = append(rows, p)
		}
	}
	return rows, nil
}

func (t *buntTx) ProgressByRoom(roomId string) ([]*types.PlayerProgress, error) {
	return t.progressByIndex("progress_room", "room_id", roomId)
}

func (t *buntTx) ProgressByGame(gameId string) ([]*types.PlayerProgress, error) {
	return t.progressByIndex("progress_game", "game_id", gameId)
}

func (t *buntTx) ProgressByUser(userId string) ([]*types.PlayerProgress, error) {
	return t.progressByIndex("progress_user", "user_id", userId)
}

func (t *buntTx) PutEvent(e *types.RoomEvent) error {
	return t.put(eventKey(e.Id), e)
}

func (t *buntTx) DeleteEvent(id string) error {
	return t.delete(eventKey(id))
}

func (t *buntTx) EventsByRoom(roomId string) ([]*types.RoomEvent, error) {
	vals, err := t.ascendEqual("events_room", "room_id", roomId)
	if err != nil {
		return nil, err
	}
	events := make([]*types.RoomEvent, 0, len(vals))
	for _, val := range vals {
		e := &types.RoomEvent{}
		if err := json.Unmarshal([]byte(val), e); err == nil {
			events = append(events, e)
		}
	}
	return events, nil
}

func (t *buntTx) EventsBefore(cutoff time.Time) ([]*types.RoomEvent, error) {
	events := make([]*types.RoomEvent, 0)
	err := t.tx.Ascend("events_created", func(key, val string) bool {
		e := &types.RoomEvent{}
		if err := json.Unmarshal([]byte(val), e); err == nil && e.Created.Before(cutoff) {
			events = append(events, e)
		}
		return true
	})
	return events, err
}
