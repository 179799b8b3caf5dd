package events

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEvent struct {
	typ  string
	data any
}

func (e testEvent) EventType() string { return e.typ }
func (e testEvent) Payload() any      { return e.data }

func newTestBroker(t *testing.T, keepAlive time.Duration) *Broker {
	t.Helper()

	b := NewBroker(keepAlive, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(b.Close)

	return b
}

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()

	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return ""
	}
}

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	b := newTestBroker(t, 0)
	assert.Equal(t, 0, b.ClientCount())

	ch := b.Subscribe()
	assert.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroker_PublishFrame(t *testing.T) {
	b := newTestBroker(t, 0)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	require.NoError(t, b.Publish(context.Background(), testEvent{
		typ:  "daily.explanation.ready",
		data: map[string]string{"date": "2024-06-01", "status": "ready"},
	}))
	require.NoError(t, b.Publish(context.Background(), testEvent{typ: "daily.created", data: map[string]string{}}))

	assert.Equal(t,
		"id: 1\nevent: daily.explanation.ready\ndata: {\"date\":\"2024-06-01\",\"status\":\"ready\"}\n\n",
		receive(t, ch))
	assert.True(t, strings.HasPrefix(receive(t, ch), "id: 2\nevent: daily.created\n"))
}

func TestBroker_SlowClientDoesNotBlockOthers(t *testing.T) {
	b := newTestBroker(t, 0)

	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	fast := b.Subscribe()
	defer b.Unsubscribe(fast)

	for range clientBuffer + 10 {
		require.NoError(t, b.Publish(context.Background(), testEvent{typ: "tick", data: 1}))

		receive(t, fast)
	}

	assert.Len(t, slow, clientBuffer)
}

func TestBroker_UnencodablePayload(t *testing.T) {
	b := newTestBroker(t, 0)

	err := b.Publish(context.Background(), testEvent{typ: "bad", data: make(chan int)})
	assert.ErrorContains(t, err, "encoding bad event")
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(0, nil)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.ClientCount())
	assert.ErrorIs(t, b.Publish(context.Background(), testEvent{typ: "x"}), ErrClosed)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBroker_ServeHTTP(t *testing.T) {
	b := newTestBroker(t, 20*time.Millisecond)

	server := httptest.NewServer(b)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), testEvent{
		typ:  "daily.illustration.ready",
		data: map[string]string{"date": "2024-06-01"},
	}))

	reader := bufio.NewReader(resp.Body)

	var sawPing, sawEvent bool

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !(sawPing && sawEvent) {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)

		switch {
		case strings.HasPrefix(line, ": ping"):
			sawPing = true
		case line == "event: daily.illustration.ready\n":
			sawEvent = true
		}
	}

	assert.True(t, sawEvent, "event frame not received")
	assert.True(t, sawPing, "keep-alive not received")

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
