// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pings and control frames.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message is a notification pushed to dashboard clients.
type Message struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
	Home    string `json:"home,omitempty"`
	Away    string `json:"away,omitempty"`
	Date    string `json:"date,omitempty"`
	Public  bool   `json:"public,omitempty"`
	Error   string `json:"error,omitempty"`
}

type hubEvent struct {
	msg  Message
	meta MatchMetadata
}

// Hub fans match notifications out to the connected clients that may read
// the match. All client bookkeeping happens on the run goroutine.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	events     chan hubEvent
	stop       chan struct{}
	stopOnce   sync.Once
	count      atomic.Int64

	isAdmin func(userId string) bool
}

// NewHub starts a hub. isAdmin may be nil.
func NewHub(isAdmin func(string) bool) *Hub {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	h := &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		events:     make(chan hubEvent, 64),
		stop:       make(chan struct{}),
		isAdmin:    isAdmin,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.count.Store(int64(len(h.clients)))
		case ev := <-h.events:
			h.broadcast(ev)
		case <-h.stop:
			for c := range h.clients {
				close(c.send)
			}
			h.clients = nil
			h.count.Store(0)
			return
		}
	}
}

func (h *Hub) broadcast(ev hubEvent) {
	for c := range h.clients {
		if GetMatchAccess(c.userId, ev.meta, h.isAdmin(c.userId)) < AccessRead {
			continue
		}
		select {
		case c.send <- ev.msg:
		default:
			// Slow client.
			close(c.send)
			delete(h.clients, c)
		}
	}
	h.count.Store(int64(len(h.clients)))
}

// Publish queues a notification about a match. meta is the state that
// decides who may see it, so deletions pass the metadata from before the
// tombstone. It never blocks; when the queue is full the notification is
// dropped.
func (h *Hub) Publish(msgType string, meta MatchMetadata) {
	if h == nil {
		return
	}
	msg := Message{
		Type:    msgType,
		MatchID: meta.ID,
		Home:    meta.Home,
		Away:    meta.Away,
		Date:    meta.Date,
		Public:  meta.Public,
	}
	meta.Status = StatusActive
	select {
	case h.events <- hubEvent{msg: msg, meta: meta}:
	case <-h.stop:
	default:
		log.Printf("Hub: queue full, dropping %s for %s", msgType, meta.ID)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	userId string
}

// readPump drains the connection so that control frames are processed.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and registers the client with the hub.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request, debugf func(string, ...any)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	c := &wsClient{hub: h, conn: conn, send: make(chan Message, 64), userId: getUserID(r)}
	select {
	case h.register <- c:
	case <-h.stop:
		conn.Close()
		return
	}
	debugf("websocket connected user=%s", maskEmail(c.userId))
	go c.writePump()
	go c.readPump()
}
