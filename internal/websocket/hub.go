package websocket

import (
	"github.com/isdelr/pollboard/internal/models"
	"github.com/rs/zerolog/log"
)

type subscription struct {
	client *Client
	pollID int64
}

type tally struct {
	pollID  int64
	message []byte
}

type directed struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and fans poll tallies out to them.
// All maps are owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan tally
	reply       chan directed
	done        chan struct{}

	// A map of poll IDs to the set of clients subscribed to it.
	subscriptions map[int64]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		unsubscribe:   make(chan subscription),
		publish:       make(chan tally, 64),
		reply:         make(chan directed),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[int64]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			if client.PollID != 0 {
				h.addSubscription(client, client.PollID)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				h.addSubscription(sub.client, sub.pollID)
			}
		case sub := <-h.unsubscribe:
			if subs, ok := h.subscriptions[sub.pollID]; ok {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.subscriptions, sub.pollID)
				}
			}
		case t := <-h.publish:
			h.deliver(t)
		case d := <-h.reply:
			if _, ok := h.clients[d.client]; ok {
				h.send(d.client, d.message)
			}
		}
	}
}

// Stop halts the Hub and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Subscribe adds client to the audience of a poll.
func (h *Hub) Subscribe(client *Client, pollID int64) {
	select {
	case h.subscribe <- subscription{client: client, pollID: pollID}:
	case <-h.done:
	}
}

// Unsubscribe removes client from the audience of a poll.
func (h *Hub) Unsubscribe(client *Client, pollID int64) {
	select {
	case h.unsubscribe <- subscription{client: client, pollID: pollID}:
	case <-h.done:
	}
}

// Reply sends a message to a single registered client.
func (h *Hub) Reply(client *Client, message []byte) {
	if message == nil {
		return
	}
	select {
	case h.reply <- directed{client: client, message: message}:
	case <-h.done:
	}
}

// PublishTally queues a poll's tally for its subscribers and for clients
// following every poll. It never blocks the caller; a full queue drops the update.
func (h *Hub) PublishTally(poll models.Poll) {
	message := NewTallyMessage(poll)
	if message == nil {
		return
	}
	select {
	case h.publish <- tally{pollID: poll.ID, message: message}:
	default:
		log.Warn().Int64("poll_id", poll.ID).Msg("Tally queue full, dropping update")
	}
}

func (h *Hub) deliver(t tally) {
	sent := make(map[*Client]bool)
	for client := range h.subscriptions[t.pollID] {
		sent[client] = true
		h.send(client, t.message)
	}
	for client := range h.clients {
		if client.PollID == 0 && !sent[client] {
			h.send(client, t.message)
		}
	}
}

func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, pollID int64) {
	if h.subscriptions[pollID] == nil {
		h.subscriptions[pollID] = make(map[*Client]bool)
	}
	h.subscriptions[pollID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for pollID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, pollID)
			}
		}
	}
}

// Done is closed once Stop has been called.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
