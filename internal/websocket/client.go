package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 90 * time.Second
	pingInterval = 30 * time.Second
	eventBacklog = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one websocket subscription to a user's payment events.
type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	events chan PaymentEvent
}

// ServeWS upgrades the request and streams payment events until the
// peer goes away.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for user %s: %v", userID, err)
		return
	}
	client := &Client{
		hub:    hub,
		userID: userID,
		conn:   conn,
		events: make(chan PaymentEvent, eventBacklog),
	}
	hub.Register(userID, client)
	go client.writeLoop()
	client.readLoop()
}

func (c *Client) close() {
	c.hub.Unregister(c.userID, c)
	_ = c.conn.Close()
}

// readLoop discards inbound frames; the stream is one-way. It exists to
// process pongs and notice a dropped peer.
func (c *Client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(256)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case event, ok := <-c.events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
