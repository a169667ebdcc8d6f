package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore is the SQL-backed alternative to BuntStore, selected via the
// persistence type "sqlite" or "postgres". All operations run in serializable
// transactions so both backends give the game core the same guarantee.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(cfg *config.Config) (Store, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, fmt.Errorf("no dsn configured")
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	err = db.AutoMigrate(&types.User{}, &types.Room{}, &types.Game{}, &types.PlayerProgress{}, &types.RoomEvent{})
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Update(fn func(tx Tx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *GormStore) View(fn func(tx Tx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true})
}

func (s *GormStore) Close() error {
	return nil
}

type gormTx struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (t *gormTx) GetUser(id string) (*types.User, error) {
	user := &types.User{}
	if err := t.db.First(user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (t *gormTx) PutUser(user *types.User) error {
	return t.db.Save(user).Error
}

func (t *gormTx) DeleteUser(id string) error {
	return t.db.Delete(&types.User{}, "id = ?", id).Error
}

func (t *gormTx) Users() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := t.db.Find(&users).Error
	return users, err
}

func (t *gormTx) GetRoom(id string) (*types.Room, error) {
	room := &types.Room{}
	if err := t.db.First(room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return room, nil
}

func (t *gormTx) PutRoom(room *types.Room) error {
	return t.db.Save(room).Error
}

func (t *gormTx) RoomByOwner(ownerId string) (*types.Room, error) {
	room := &types.Room{}
	if err := t.db.First(room, "owner_id = ?", ownerId).Error; err != nil {
		return nil, notFound(err)
	}
	return room, nil
}

func (t *gormTx) Rooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := t.db.Find(&rooms).Error
	return rooms, err
}

func (t *gormTx) GetGame(id string) (*types.Game, error) {
	game := &types.Game{}
	if err := t.db.First(game, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return game, nil
}

func (t *gormTx) PutGame(game *types.Game) error {
	return t.db.Save(game).Error
}

func (t *gormTx) DeleteGame(id string) error {
	return t.db.Delete(&types.Game{}, "id = ?", id).Error
}

func (t *gormTx) LatestGameByRoom(roomId string) (*types.Game, error) {
	game := &types.Game{}
	err := t.db.Where("room_id = ?", roomId).Order("created_at DESC").First(game).Error
	if err != nil {
		return nil, notFound(err)
	}
	return game, nil
}

func (t *gormTx) GetProgress(userId, roomId string) (*types.PlayerProgress, error) {
	p := &types.PlayerProgress{}
	if err := t.db.First(p, "id = ?", types.ProgressId(userId, roomId)).Error; err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (t *gormTx) PutProgress(p *types.PlayerProgress) error {
	if p.Id == "" {
		p.Id = types.ProgressId(p.UserId, p.RoomId)
	}
	return t.db.Save(p).Error
}

func (t *gormTx) DeleteProgress(userId, roomId string) error {
	return t.db.Delete(&types.PlayerProgress{}, "id = ?", types.ProgressId(userId, roomId)).Error
}

func (t *gormTx) ProgressByRoom(roomId string) ([]*types.PlayerProgress, error) {
	rows := make([]*types.PlayerProgress, 0)
	err := t.db.Where("room_id = ?", roomId).Find(&rows).Error
	return rows, err
}

func (t *gormTx) ProgressByGame(gameId string) ([]*types.PlayerProgress, error) {
	rows := make([]*types.PlayerProgress, 0)
	err := t.db.Where("game_id = ?", gameId).Find(&rows).Error
	return rows, err
}

func (t *gormTx) ProgressByUser(userId string) ([]*types.PlayerProgress, error) {
	rows := make([]*types.PlayerProgress, 0)
	err := t.db.Where("user_id = ?", userId).Find(&rows).Error
	return rows, err
}

func (t *gormTx) PutEvent(e *types.RoomEvent) error {
	return t.db.Save(e).Error
}

func (t *gormTx) DeleteEvent(id string) error {
	return t.db.Delete(&types.RoomEvent{}, "id = ?", id).Error
}

func (t *gormTx) EventsByRoom(roomId string) ([]*types.RoomEvent, error) {
	events := make([]*types.RoomEvent, 0)
	err := t.db.Where("room_id = ?", roomId).Find(&events).Error
	return events, err
}

func (t *gormTx) EventsBefore(cutoff time.Time) ([]*types.RoomEvent, error) {
	events := make([]*types.RoomEvent, 0)
	err := t.db.Where("created < ?", cutoff).Find(&events).Error
	return events, err
}
