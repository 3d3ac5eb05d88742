package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roadsim/internal/logging"
	"roadsim/internal/sim"
	"roadsim/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait    = 10 * time.Second
	clientBuffer = 64 // queued updates before a client counts as stalled
)

// Client owns one websocket connection. Only its writer goroutine writes to
// conn; the hub hands it messages through send.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn, send: make(chan []byte, clientBuffer)}
}

// writePump drains send until the hub closes it or a write fails.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub fans simulation ticks out to every connected client. It implements
// sim.Recorder so a running world can feed it directly.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        logging.Logger
}

var _ sim.Recorder = (*Hub)(nil)

func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info(ctx, "client connected", logging.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info(ctx, "client disconnected", logging.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.Warn(ctx, "dropping stalled client")
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop forgets client and stops its writer. Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an update for every client. It blocks while the queue is
// full, or until ctx is done.
func (h *Hub) Broadcast(ctx context.Context, updateType string, data any) error {
	jsonData, err := json.Marshal(Update{Type: updateType, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- jsonData:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record broadcasts frame as a "tick" update.
func (h *Hub) Record(ctx context.Context, frame sim.Frame) error {
	return h.Broadcast(ctx, "tick", types.TickUpdate{
		Tick:      frame.Tick,
		Stats:     frame.Stats,
		Positions: frame.Positions,
	})
}

// HandleWebSocket upgrades the connection, sends the graph as an "init"
// update and keeps the client registered until it disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	client := newClient(conn)
	initMsg, _ := json.Marshal(Update{Type: "init", Data: s.GetGraphData()})
	client.send <- initMsg

	select {
	case s.Hub.register <- client:
	case <-s.Hub.done:
		conn.Close()
		return
	}
	go client.writePump()

	// read until the client goes away
	go func() {
		defer func() {
			select {
			case s.Hub.unregister <- client:
			case <-s.Hub.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
