package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/types"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	user *types.User

	doneChan chan struct{}

	// WaitGroup which keeps track of running read/write loops and write access to Send. If the WaitGroup is done,
	// it is safe to close all channels (all loops are done and there are no more write operations on the channels)
	sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, user *types.User, doneChan chan struct{}) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		user:     user,
		doneChan: doneChan,
	}
}

// sendError reports a failed operation back to this client only.
func (c *Client) sendError(err error) {
	wireErr := types.WireError{Code: "INTERNAL", Message: err.Error()}
	var coded *types.ErrorWithCode
	if errors.As(err, &coded) {
		wireErr.Code = coded.Code
	}
	raw, err := types.NewWireMessage(types.MessageTypeError, wireErr)
	if err != nil {
		globals.AppLogger.Error("could not marshal error message", "error", err)
		return
	}
	c.hub.RLock()
	if _, ok := c.hub.clients[c]; ok {
		c.Send <- raw
	}
	c.hub.RUnlock()
}

// ReadLoop pumps messages from the websocket connection to the game service.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
		c.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	message := &types.WebsocketMessage{}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			globals.AppLogger.Debug("could not read message", "error", err)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Info("ws closed unexpected")
			}
			return
		}

		err = json.Unmarshal(raw, &message)
		if err != nil {
			globals.AppLogger.Error("could not unmarshal ws message", "error", err)
			return
		}

		dataMap := make(map[string]interface{})
		if len(message.Data) > 0 {
			err = json.Unmarshal(message.Data, &dataMap)
			if err != nil {
				globals.AppLogger.Error("could not unmarshal ws message data", "error", err)
				return
			}
		}

		switch message.Event {
		case types.MessageTypeTypeChar:
			typeMsg := types.TypeCharMessage{}
			err = mapstructure.WeakDecode(dataMap, &typeMsg)
			if err != nil {
				globals.AppLogger.Error("could not decode type_char message", "error", err)
				return
			}
			if err := c.hub.Svc.TypeCharacter(typeMsg.GameId, c.user.Id, typeMsg.Char); err != nil {
				c.sendError(err)
			}

		case types.MessageTypeStartGame:
			startMsg := types.StartGameMessage{}
			err = mapstructure.WeakDecode(dataMap, &startMsg)
			if err != nil {
				globals.AppLogger.Error("could not decode start_game message", "error", err)
				return
			}
			duration := time.Duration(startMsg.DurationMs) * time.Millisecond
			if _, err := c.hub.Svc.StartGame(c.hub.roomId, c.user.Id, duration); err != nil {
				c.sendError(err)
			}

		case types.MessageTypeResetGame:
			if err := c.hub.Svc.ResetGame(c.hub.roomId, c.user.Id); err != nil {
				c.sendError(err)
			}

		case types.MessageTypePlayAgain:
			if err := c.hub.Svc.PlayAgain(c.hub.roomId, c.user.Id); err != nil {
				c.sendError(err)
			}

		case types.MessageTypeLeaveRoom:
			if err := c.hub.Svc.LeaveRoom(c.hub.roomId, c.user.Id); err != nil {
				c.sendError(err)
				continue
			}
			return

		case types.MessageTypeKick:
			kickMsg := types.KickMessage{}
			err = mapstructure.WeakDecode(dataMap, &kickMsg)
			if err != nil {
				globals.AppLogger.Error("could not decode kick_player message", "error", err)
				return
			}
			if err := c.hub.Svc.KickPlayer(c.hub.roomId, kickMsg.UserId, c.user.Id); err != nil {
				c.sendError(err)
			}
		}
	}
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Done()
	}()
	for {
		select {
		case <-c.doneChan:
			return
		default:
		}
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				globals.AppLogger.Info("could not write to ws connection, exiting write loop")
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				globals.AppLogger.Info("could not send ping message, exiting write loop")
				return
			}

		case <-c.doneChan:
			return
		}
	}
}
