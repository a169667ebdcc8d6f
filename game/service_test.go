package game

import (
	"sync"
	"testing"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/scheduler"
	"github.com/raceline/typerace/text"
	"github.com/raceline/typerace/types"
)

// fakeScheduler records scheduled callbacks so tests can fire or inspect them
// explicitly instead of waiting for real timers.
type fakeScheduler struct {
	mu        sync.Mutex
	seq       int
	timers    map[scheduler.Handle]scheduledCall
	cancelled []scheduler.Handle
}

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{timers: make(map[scheduler.Handle]scheduledCall)}
}

func (f *fakeScheduler) After(d time.Duration, fn func()) scheduler.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	h := scheduler.Handle(string(rune('a' + f.seq)))
	f.timers[h] = scheduledCall{delay: d, fn: fn}
	return h
}

func (f *fakeScheduler) Cancel(h scheduler.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, h)
	delete(f.timers, h)
}

// fire runs the single pending callback and removes it.
func (f *fakeScheduler) fire(t *testing.T) {
	f.mu.Lock()
	if len(f.timers) != 1 {
		f.mu.Unlock()
		t.Fatalf("expected exactly one pending timer, have %d", len(f.timers))
	}
	var h scheduler.Handle
	var call scheduledCall
	for k, v := range f.timers {
		h, call = k, v
	}
	delete(f.timers, h)
	f.mu.Unlock()
	call.fn()
}

func (f *fakeScheduler) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *fakeScheduler) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancelled)
}

func testConfig() *config.Config {
	return &config.Config{
		GameConfig: config.GameConfig{
			MaxPlayers:        4,
			GoalDistance:      500,
			CountdownMs:       3000,
			DefaultDurationMs: 60000,
			MinChunks:         5,
			MaxChunks:         7,
			EventRetentionMin: 60,
		},
		PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: ":memory:"},
	}
}

func newTestService(t *testing.T) (*Service, *fakeScheduler, persistence.Store) {
	cfg := testConfig()
	store, err := persistence.NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	sched := newFakeScheduler()
	svc := NewService(store, sched, text.NewCorpus(), cfg)
	return svc, sched, store
}

// seedRoom creates a user, their room and the owner's roster row.
func seedRoom(t *testing.T, store persistence.Store, roomId, ownerId string) {
	err := store.Update(func(tx persistence.Tx) error {
		if err := tx.PutUser(&types.User{Id: ownerId, Name: ownerId}); err != nil {
			return err
		}
		room := &types.Room{
			Id:               roomId,
			OwnerId:          ownerId,
			Status:           types.RoomStatusLobby,
			MaxPlayers:       4,
			NextPlayerNumber: 2,
		}
		if err := tx.PutRoom(room); err != nil {
			return err
		}
		return tx.PutProgress(&types.PlayerProgress{
			Id:           types.ProgressId(ownerId, roomId),
			RoomId:       roomId,
			UserId:       ownerId,
			PlayerName:   ownerId,
			PlayerNumber: 1,
		})
	})
	if err != nil {
		t.Fatal(err)
	}
}

// seedUser creates a bare user record.
func seedUser(t *testing.T, store persistence.Store, userId string) {
	err := store.Update(func(tx persistence.Tx) error {
		return tx.PutUser(&types.User{Id: userId, Name: userId})
	})
	if err != nil {
		t.Fatal(err)
	}
}

func getRoom(t *testing.T, store persistence.Store, roomId string) *types.Room {
	var room *types.Room
	err := store.View(func(tx persistence.Tx) error {
		var err error
		room, err = tx.GetRoom(roomId)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return room
}

func getGame(t *testing.T, store persistence.Store, gameId string) *types.Game {
	var game *types.Game
	err := store.View(func(tx persistence.Tx) error {
		var err error
		game, err = tx.GetGame(gameId)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return game
}

func getProgress(t *testing.T, store persistence.Store, userId, roomId string) *types.PlayerProgress {
	var p *types.PlayerProgress
	err := store.View(func(tx persistence.Tx) error {
		var err error
		p, err = tx.GetProgress(userId, roomId)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func roomPlayers(t *testing.T, store persistence.Store, roomId string) []*types.PlayerProgress {
	var players []*types.PlayerProgress
	err := store.View(func(tx persistence.Tx) error {
		var err error
		players, err = tx.ProgressByRoom(roomId)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return players
}

func TestSubscribeNotify(t *testing.T) {
	svc, _, _ := newTestService(t)

	ch, unsubscribe := svc.Subscribe("room1")
	svc.notify("room1")
	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}

	// signals coalesce, a second notify on a full channel must not block
	svc.notify("room1")
	svc.notify("room1")
	<-ch
	select {
	case <-ch:
		t.Fatal("expected signals to coalesce")
	default:
	}

	unsubscribe()
	svc.notify("room1")
	select {
	case <-ch:
		t.Fatal("expected no signal after unsubscribe")
	default:
	}
}
