package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.C:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub(t *testing.T) {
	t.Run("Should deliver only to the audience", func(t *testing.T) {
		hub := NewHub()
		alice := hub.Subscribe("alice")
		bob := hub.Subscribe("bob")
		defer alice.Close()
		defer bob.Close()

		require.NoError(t, hub.Publish(context.Background(), NewEvent("referral.updated", "referral", "ref-1", "alice")))

		e := receive(t, alice)
		assert.Equal(t, "referral.updated", e.Type)
		assert.Equal(t, "ref-1", e.ID)
		select {
		case <-bob.C:
			t.Fatal("bob should not receive alice's event")
		default:
		}
	})

	t.Run("Should drop events for a full subscriber", func(t *testing.T) {
		hub := NewHub()
		sub := hub.Subscribe("alice")
		defer sub.Close()
		for i := 0; i < subscriberBuffer+5; i++ {
			hub.Deliver(NewEvent("job.updated", "job", "job-1", "alice"))
		}
		assert.Len(t, sub.C, subscriberBuffer)
	})

	t.Run("Should forget closed subscriptions", func(t *testing.T) {
		hub := NewHub()
		sub := hub.Subscribe("alice")
		assert.Equal(t, 1, hub.Subscribers("alice"))
		sub.Close()
		sub.Close()
		assert.Equal(t, 0, hub.Subscribers("alice"))
		hub.Deliver(NewEvent("job.updated", "job", "job-1", "alice"))
	})
}

func TestRedisBridge(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	sub := hub.Subscribe("client-1")
	defer sub.Close()

	log := logrus.New()
	receiver := NewRedisBridge(client, "referify:events", hub, log)
	require.NoError(t, receiver.Start(ctx))

	// A second instance sharing the channel only publishes.
	sender := NewRedisBridge(client, "referify:events", NewHub(), log)
	require.NoError(t, sender.Publish(ctx, NewEvent("referral.created", "referral", "ref-9", "client-1")))

	e := receive(t, sub)
	assert.Equal(t, "referral.created", e.Type)
	assert.Equal(t, "ref-9", e.ID)
	assert.Equal(t, []string{"client-1"}, e.Audience)
}

func TestFeed(t *testing.T) {
	hub := NewHub()
	feed := NewFeed(hub, []string{"https://app.example"}, logrus.New())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed.Serve(w, r, "member-1")
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	t.Run("Should stream events as JSON", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return hub.Subscribers("member-1") == 1 }, time.Second, 10*time.Millisecond)
		hub.Deliver(NewEvent("referral.status_changed", "referral", "ref-1", "member-1"))

		var got Event
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "referral.status_changed", got.Type)
		assert.Equal(t, "referral", got.Entity)
	})

	t.Run("Should refuse foreign origins", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
