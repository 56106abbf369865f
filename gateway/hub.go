package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storychat/core"
	"storychat/protocol"
)

const (
	sendBufferSize = 256
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from arbitrary origins during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClient is one connected WebSocket consumer. Writes go through a buffered
// channel so a slow client never blocks a broadcast.
type wsClient struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) enqueue(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		// Buffer full. Drop oldest and push new.
		select {
		case <-c.sendCh:
		default:
		}
		select {
		case c.sendCh <- data:
		default:
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// hub tracks connected WebSocket clients and fans events out to all of them.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *core.Logger
}

func newHub(logger *core.Logger) *hub {
	return &hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger.With(map[string]interface{}{"component": "gateway.hub"}),
	}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// broadcast marshals the event once and enqueues it to every client.
func (h *hub) broadcast(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		h.logger.Warn("failed to marshal event, dropping", "type", string(msgType), "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// sendTo answers one client directly, off the broadcast path.
func (h *hub) sendTo(c *wsClient, msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		h.logger.Warn("failed to marshal reply, dropping", "type", string(msgType), "error", err)
		return
	}
	c.enqueue(data)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// serve upgrades the request and runs the read loop, handing every decoded
// command to onCommand. Returns when the connection drops.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, onCommand func(c *wsClient, msgType protocol.MessageType, payload json.RawMessage)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	h.add(client)
	defer h.remove(client)

	go client.writeLoop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket connection lost", "error", err)
			}
			return
		}
		msgType, payload, err := protocol.Unmarshal(data)
		if err != nil {
			h.logger.Warn("invalid message from client", "error", err)
			continue
		}
		onCommand(client, msgType, payload)
	}
}
