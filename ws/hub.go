package ws

import (
	"sync"
	"time"

	"github.com/raceline/typerace/config"
	"github.com/raceline/typerace/game"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/types"
	"github.com/robfig/cron/v3"
)

const (
	maxMessageSize       = 4096
	pongWait             = 2 * time.Minute
	pingPeriod           = time.Minute
	writeWait            = 10 * time.Second
	sendChannelSize      = 256
	broadcastChannelSize = 256
)

// Hub fans the state of one room out to its connected clients. There is one
// hub per room; it subscribes to the game service's change signal and pushes
// a fresh projection after every mutation.
type Hub struct {
	roomId string

	// Registered clients.
	clients map[*Client]struct{}

	// Broadcast raw messages to all clients.
	Broadcast chan []byte

	// Register a new client to the hub.
	Register chan *Client

	// Unregister a client from the hub.
	Unregister chan *Client

	// global configuration
	Cfg *config.Config

	Svc *game.Service

	// mutex for manipulating the clients
	sync.RWMutex
}

func NewHub(roomId string, cfg *config.Config, svc *game.Service) *Hub {
	return &Hub{
		roomId:     roomId,
		clients:    make(map[*Client]struct{}),
		Broadcast:  make(chan []byte, broadcastChannelSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Cfg:        cfg,
		Svc:        svc,
	}
}

// NoClients returns the number of clients registered
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Run is the main hub event loop handling register, unregister, broadcast
// and room-change events.
func (h *Hub) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := cronRunner.AddFunc("@every 10m", func() {
		cutoff := time.Now().Add(-h.Cfg.GameConfig.EventRetention())
		if err := h.Svc.PurgeEvents(cutoff); err != nil {
			globals.AppLogger.Error("could not purge room events", "room", h.roomId, "error", err)
		}
	})
	if err != nil {
		panic(err)
	}
	defer cronRunner.Stop()
	cronRunner.Start()

	changes, unsubscribe := h.Svc.Subscribe(h.roomId)
	defer unsubscribe()

	for {
		select {
		case client := <-h.Register:
			h.Lock()
			h.clients[client] = struct{}{}
			h.Unlock()
			go h.PushState()

		case client := <-h.Unregister:
			go func() {
				h.RLock()
				if _, ok := h.clients[client]; ok {
					h.RUnlock()

					h.Lock()
					delete(h.clients, client)
					// probably already closed, just to make sure
					client.conn.Close()
					// wait for all loops and write operations to be finished
					// before closing the send channel
					client.Wait()
					close(client.Send)
					h.Unlock()
					go h.PushState()
				} else {
					h.RUnlock()
				}
			}()

		case message := <-h.Broadcast:
			go func() {
				var wg sync.WaitGroup
				h.RLock()
				for client := range h.clients {
					wg.Add(1)
					client.Add(1)
					go func(c *Client) {
						defer wg.Done()
						defer c.Done()
						c.Send <- message
					}(client)
				}
				wg.Wait()
				h.RUnlock()
			}()

		case <-changes:
			h.PushState()
		}
	}
}

// PushState sends the current room projection to every client: the shared
// room state, the per-player text window and any directed room events. A
// directed event is consumed once it reached a matching client.
func (h *Hub) PushState() {
	state, err := h.Svc.RoomState(h.roomId)
	if err != nil {
		globals.AppLogger.Error("could not load room state", "room", h.roomId, "error", err)
		return
	}
	stateMsg, err := types.NewWireMessage(types.MessageTypeRoomState, state)
	if err != nil {
		globals.AppLogger.Error("could not marshal room state", "error", err)
		return
	}

	events, err := h.Svc.PendingEvents(h.roomId)
	if err != nil {
		globals.AppLogger.Error("could not load room events", "room", h.roomId, "error", err)
		events = nil
	}
	delivered := make(map[string]struct{})

	h.RLock()
	for client := range h.clients {
		client.Add(1)
		go func(c *Client) {
			defer c.Done()
			c.Send <- stateMsg
		}(client)

		if state.Game != nil {
			if window, err := h.Svc.TextWindow(state.Game.Id, client.user.Id); err == nil && window != nil {
				if msg, err := types.NewWireMessage(types.MessageTypeText, window); err == nil {
					client.Add(1)
					go func(c *Client) {
						defer c.Done()
						c.Send <- msg
					}(client)
				}
			}
		}

		for _, event := range events {
			if !client.RunFilterEvent(event, state.Room) {
				continue
			}
			if msg, err := types.NewWireMessage(types.MessageTypeEvent, event); err == nil {
				client.Add(1)
				go func(c *Client) {
					defer c.Done()
					c.Send <- msg
				}(client)
				delivered[event.Id] = struct{}{}
			}
		}
	}
	h.RUnlock()

	for id := range delivered {
		if err := h.Svc.ConsumeEvent(id); err != nil {
			globals.AppLogger.Error("could not consume room event", "event", id, "error", err)
		}
	}
}
