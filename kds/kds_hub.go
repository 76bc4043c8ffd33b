package kds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/branch-ordering/utils"
)

// Event types
const (
	EventNewOrder    = "new_order"
	EventOrderReady  = "order_ready"
	EventOrderStatus = "order_status"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

type Message struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}

// Publisher delivers a message to every subscriber of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data interface{}) error
}

// Hub groups websocket clients into channels (rooms) and fans messages out to them.
type Hub struct {
	mutex sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Client is one websocket connection subscribed to a fixed set of channels.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	channels []string
	once     sync.Once
}

// Register subscribes conn to the channels and starts its pumps. The
// connection is closed when the peer goes away or falls too far behind.
func (h *Hub) Register(conn *websocket.Conn, channels ...string) *Client {
	c := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		channels: channels,
	}

	h.mutex.Lock()
	for _, ch := range channels {
		room, ok := h.rooms[ch]
		if !ok {
			room = make(map[*Client]struct{})
			h.rooms[ch] = room
		}
		room[c] = struct{}{}
	}
	h.mutex.Unlock()

	utils.InfoLogger.WithField("channels", channels).Info("realtime client connected")

	go c.writePump()
	go c.readPump()
	return c
}

// Unregister removes the client from all of its channels and closes it.
func (h *Hub) Unregister(c *Client) {
	c.once.Do(func() {
		h.mutex.Lock()
		for _, ch := range c.channels {
			if room, ok := h.rooms[ch]; ok {
				delete(room, c)
				if len(room) == 0 {
					delete(h.rooms, ch)
				}
			}
		}
		h.mutex.Unlock()
		close(c.send)
	})
}

// ClientCount returns the number of clients subscribed to channel.
func (h *Hub) ClientCount(channel string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[channel])
}

// Publish never blocks on a slow client: a client whose queue is full is dropped.
func (h *Hub) Publish(_ context.Context, channel, event string, data interface{}) error {
	payload, err := json.Marshal(Message{Event: event, Channel: channel, Data: data})
	if err != nil {
		return err
	}

	var slow []*Client
	h.mutex.RLock()
	for c := range h.rooms[channel] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range slow {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"channel": channel,
			"event":   event,
		}).Error("dropping slow realtime client")
		h.Unregister(c)
	}
	return nil
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only listen; anything they send is discarded.
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				utils.ErrorLogger.Errorf("Error sending message to client: %v", err)
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
