package ws

import (
	"sync"

	"go.uber.org/zap"
)

// notification targets all live connections of a single subject
type notification struct {
	subjectID string
	data      []byte
}

// Hub owns the connection registry. All registry mutation happens on the
// Run goroutine; callers talk to it through channels only, so no lock
// covers the maps.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	notify     chan notification
	done       chan struct{}
	closeOnce  sync.Once

	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}

	logger *zap.Logger
}

// NewHub creates a hub. Call Run on its own goroutine before registering
// connections.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan notification, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		byUser:     make(map[string]map[*Client]struct{}),
		logger:     logger,
	}
}

// Run processes registry events until Close is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case n := <-h.notify:
			h.deliver(n)

		case <-h.done:
			for client := range h.clients {
				client.stop()
			}
			h.clients = make(map[*Client]struct{})
			h.byUser = make(map[string]map[*Client]struct{})
			return
		}
	}
}

// Register adds a connection to the registry
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.stop()
	}
}

// Unregister removes a connection and stops its pumps
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyUser queues a message for every live connection of the subject.
// Delivery is best-effort: a slow connection drops the message rather than
// stalling the hub.
func (h *Hub) NotifyUser(subjectID string, data []byte) {
	if subjectID == "" {
		return
	}
	select {
	case h.notify <- notification{subjectID: subjectID, data: data}:
	case <-h.done:
	}
}

// Close shuts the hub down and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) add(client *Client) {
	h.clients[client] = struct{}{}
	if id := client.identity.SubjectID; id != "" {
		if h.byUser[id] == nil {
			h.byUser[id] = make(map[*Client]struct{})
		}
		h.byUser[id][client] = struct{}{}
	}
	h.logger.Info("websocket connection registered",
		zap.String("subject_id", client.identity.SubjectID),
		zap.Bool("authenticated", client.identity.Authenticated),
		zap.Int("connections", len(h.clients)),
	)
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if id := client.identity.SubjectID; id != "" {
		if conns, ok := h.byUser[id]; ok {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.byUser, id)
			}
		}
	}
	client.stop()
	h.logger.Info("websocket connection unregistered",
		zap.String("subject_id", client.identity.SubjectID),
		zap.Int("connections", len(h.clients)),
	)
}

func (h *Hub) deliver(n notification) {
	for client := range h.byUser[n.subjectID] {
		select {
		case client.send <- n.data:
		default:
			h.logger.Warn("dropping websocket message for slow connection",
				zap.String("subject_id", n.subjectID),
			)
		}
	}
}
