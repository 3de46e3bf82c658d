package websocket

import (
	"encoding/json"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Actions sent to clients.
const (
	ActionPollTally = "poll_tally"
	ActionError     = "error"
	ActionAck       = "ack"
)

// NewTallyMessage encodes the current state of a poll.
func NewTallyMessage(poll models.Poll) []byte {
	return encode(Message{Action: ActionPollTally, Payload: poll})
}

// NewErrorMessage encodes an error for a single client.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Action: ActionError, Payload: map[string]string{"error": msg}})
}

// NewAckMessage confirms a client request.
func NewAckMessage(action string, pollID int64) []byte {
	return encode(Message{Action: ActionAck, Payload: map[string]interface{}{"action": action, "poll_id": pollID}})
}

// encode returns nil when m cannot be marshalled; callers skip nil frames.
func encode(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("action", m.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}
