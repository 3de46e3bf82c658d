package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/pollboard/internal/services"
	ws "github.com/isdelr/pollboard/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub         *ws.Hub
	pollService services.PollServiceProvider
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, pollService services.PollServiceProvider) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, pollService: pollService}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// inboundMessage is a request sent by a websocket client.
type inboundMessage struct {
	Action  string `json:"action"`
	Payload struct {
		PollID int64 `json:"poll_id"`
	} `json:"payload"`
}

// Serve handles the WebSocket connection request. On /ws/poll/{id} the client
// follows that poll only; on /ws it follows every poll.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	pollID, scoped := idParam(r, "id")
	if !scoped && chi.URLParam(r, "id") != "" {
		writeError(w, http.StatusNotFound, pollNotFound)
		return
	}
	if scoped {
		if _, err := h.pollService.GetPollByID(r.Context(), pollID); err != nil {
			writeServiceError(w, r, err, pollNotFound)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, pollID)
	select {
	case h.hub.Register <- client:
	case <-h.hub.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncomingWSMessage)
		// Unregistering closes Send, which ends the write pump.
		select {
		case h.hub.Unregister <- client:
		case <-h.hub.Done():
		}
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Error().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.hub.Reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "subscribe":
		poll, err := h.pollService.GetPollByID(context.Background(), msg.Payload.PollID)
		if err != nil {
			h.hub.Reply(client, ws.NewErrorMessage(pollNotFound))
			return
		}
		h.hub.Subscribe(client, poll.ID)
		h.hub.Reply(client, ws.NewAckMessage(msg.Action, poll.ID))
		h.hub.Reply(client, ws.NewTallyMessage(poll))

	case "unsubscribe":
		h.hub.Unsubscribe(client, msg.Payload.PollID)
		h.hub.Reply(client, ws.NewAckMessage(msg.Action, msg.Payload.PollID))

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.hub.Reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}
