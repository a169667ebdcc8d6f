package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/persistence"
	"github.com/raceline/typerace/scheduler"
	"github.com/raceline/typerace/text"
	"github.com/raceline/typerace/types"
)

// Service owns the room and game state machines, the progress engine and the
// roster bookkeeping. Every public operation executes as one store
// transaction; the scheduler drives the countdown and end-of-game
// transitions.
type Service struct {
	store  persistence.Store
	sched  scheduler.Scheduler
	corpus *text.Corpus
	cfg    *config.Config

	now func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	subMu sync.Mutex
	subs  map[string][]chan struct{}
}

func NewService(store persistence.Store, sched scheduler.Scheduler, corpus *text.Corpus, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		sched:  sched,
		corpus: corpus,
		cfg:    cfg,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		subs:   make(map[string][]chan struct{}),
	}
}

// mayAdministrate reports whether the user may perform owner-only operations
// on the room. The configured admin user is allowed everywhere.
func (s *Service) mayAdministrate(room *types.Room, userId string) bool {
	if room.OwnerId == userId {
		return true
	}
	return s.cfg.AdminUser != "" && s.cfg.AdminUser == userId
}

func (s *Service) selectChunks() text.Collection {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.corpus.Select(s.rnd, s.cfg.GameConfig.MinChunks, s.cfg.GameConfig.MaxChunks)
}

// Subscribe returns a coalesced change signal for the given room. The channel
// receives after every mutation affecting the room; the returned function
// unsubscribes.
func (s *Service) Subscribe(roomId string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[roomId] = append(s.subs[roomId], ch)
	s.subMu.Unlock()
	unsubscribe := func() {
		s.subMu.Lock()
		subs := s.subs[roomId]
		for i, c := range subs {
			if c == ch {
				s.subs[roomId] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.subMu.Unlock()
	}
	return ch, unsubscribe
}

func (s *Service) notify(roomId string) {
	if roomId == "" {
		return
	}
	s.subMu.Lock()
	for _, ch := range s.subs[roomId] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subMu.Unlock()
}
