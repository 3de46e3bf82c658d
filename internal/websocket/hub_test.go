package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, pollID int64) *Client {
	return NewClient(hub, nil, pollID)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var m Message
		require.NoError(t, json.Unmarshal(raw, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesTallies(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	follower := newTestClient(hub, 0)
	pollOne := newTestClient(hub, 1)
	pollTwo := newTestClient(hub, 2)
	hub.Register <- follower
	hub.Register <- pollOne
	hub.Register <- pollTwo

	hub.PublishTally(models.Poll{ID: 1, Question: "One?", Options: []models.PollOption{{ID: 10, OptionText: "A", Votes: 3}}})

	m := receive(t, pollOne)
	assert.Equal(t, ActionPollTally, m.Action)
	payload := m.Payload.(map[string]interface{})
	assert.Equal(t, "One?", payload["question"])

	assert.Equal(t, ActionPollTally, receive(t, follower).Action)
	assertSilent(t, pollTwo)
}

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient(hub, 5)
	hub.Register <- client
	hub.Subscribe(client, 6)

	hub.PublishTally(models.Poll{ID: 6})
	assert.Equal(t, ActionPollTally, receive(t, client).Action)

	hub.Unsubscribe(client, 6)
	hub.PublishTally(models.Poll{ID: 6})
	assertSilent(t, client)

	hub.Reply(client, NewAckMessage("unsubscribe", 6))
	assert.Equal(t, ActionAck, receive(t, client).Action)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newTestClient(hub, 1)
	hub.Register <- client
	hub.Unregister <- client

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestEncodeFailureYieldsNoFrame(t *testing.T) {
	assert.Nil(t, encode(Message{Action: ActionPollTally, Payload: make(chan int)}))

	var m Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("boom"), &m))
	assert.Equal(t, ActionError, m.Action)
}
