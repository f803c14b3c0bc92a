package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"assethub/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one live connection, keyed in the hub by account email. The send
// channel is buffered; a client that cannot drain it in time is dropped
// rather than allowed to stall a broadcast.
type Client struct {
	email string
	conn  *websocket.Conn
	send  chan []byte
}

// Hub tracks connections per email. One account may hold several connections
// (multiple tabs); all of them receive each update.
type Hub struct {
	mutex   sync.Mutex
	clients map[string]map[*Client]bool
}

var hub = &Hub{clients: make(map[string]map[*Client]bool)}

func (h *Hub) register(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[c.email] == nil {
		h.clients[c.email] = make(map[*Client]bool)
	}
	h.clients[c.email][c] = true
}

// unregister removes the client if it is still registered. A slow client may
// already have been dropped by a broadcast, in which case its channel is
// closed; closing it again here would panic.
func (h *Hub) unregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients, ok := h.clients[c.email]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.email)
	}
	close(c.send)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and subscribes it to the account's update
// feed. The token rides in the query string because browsers cannot set
// headers on a WebSocket dial.
func ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.ValidateJWT(r.URL.Query().Get("token"))
	if err != nil || claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{email: claims.Email, conn: conn, send: make(chan []byte, 16)}
	hub.register(client)
	logrus.Infof("WebSocket connected: %s", claims.Email)

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames; the feed is one-way. It exists to notice
// closed connections and answer pings promptly.
func (c *Client) readPump() {
	defer func() {
		hub.unregister(c)
		c.conn.Close()
		logrus.Infof("WebSocket disconnected: %s", c.email)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
