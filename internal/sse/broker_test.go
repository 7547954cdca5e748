package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func drain(ch <-chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

// syncWriter lets the test read the body while ServeHTTP writes it.
type syncWriter struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Write(p)
}

func (w *syncWriter) body() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseRecorder.Body.String()
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	assert.Equal(t, 0, b.ClientCount())
	ch := b.Subscribe()
	assert.Equal(t, 1, b.ClientCount())
	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
}

func TestPublish_FramesCarrySequentialIDs(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"title": "🔔 Standup"}})
	b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"title": "💊 Pills"}})

	first := receive(t, ch)
	assert.True(t, strings.HasPrefix(first, "id: 1\nevent: reminder.alert\n"), first)
	assert.Contains(t, first, `"title":"🔔 Standup"`)
	assert.True(t, strings.HasPrefix(receive(t, ch), "id: 2\n"))
}

func TestPublishReminderEvent_StatsThrottle(t *testing.T) {
	b := NewBroker(WithStatsThrottle(500 * time.Millisecond))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishReminderEvent(KindCreated, "a")
	b.PublishReminderEvent(KindFired, "a")
	b.PublishReminderEvent("renamed", "a")

	time.Sleep(50 * time.Millisecond)
	var stats, changes int
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "event: stats.updated") {
			stats++
			continue
		}
		changes++
		assert.Contains(t, msg, `"id":"a"`)
	}
	assert.Equal(t, 2, changes, "unknown kinds are dropped")
	assert.Equal(t, 1, stats, "stats hint is throttled")
}

func TestSubscribeFrom_ReplaysMissedFrames(t *testing.T) {
	b := NewBroker(WithReplay(2))
	defer b.Close()
	live := b.Subscribe()
	defer b.Unsubscribe(live)

	for _, title := range []string{"one", "two", "three"} {
		b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"title": title}})
	}
	for i := 0; i < 3; i++ {
		receive(t, live)
	}

	// Frame 1 fell out of the ring; the client saw it anyway.
	late := b.SubscribeFrom(1)
	defer b.Unsubscribe(late)
	assert.Contains(t, receive(t, late), `"title":"two"`)
	assert.Contains(t, receive(t, late), `"title":"three"`)
	assert.Empty(t, drain(late))

	fresh := b.Subscribe()
	defer b.Unsubscribe(fresh)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, drain(fresh), "no replay without Last-Event-ID")
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(WithHeartbeat(20 * time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncWriter{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishReminderEvent(KindDeleted, "x")
	require.Eventually(t, func() bool {
		body := w.body()
		return strings.Contains(body, "event: reminder.deleted") && strings.Contains(body, ": ping")
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.True(t, strings.HasPrefix(w.body(), "retry: 3000\n\n"))
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSSEHandler_ResumesFromLastEventID(t *testing.T) {
	b := NewBroker(WithHeartbeat(0))
	defer b.Close()
	live := b.Subscribe()
	b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"title": "seen"}})
	b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"title": "missed"}})
	receive(t, live)
	receive(t, live)
	b.Unsubscribe(live)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := &syncWriter{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return strings.Contains(w.body(), "missed") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.NotContains(t, w.body(), "seen")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// More than the client buffer must not block the loop.
	for i := 0; i < clientBuffer+6; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	assert.Equal(t, 1, b.ClientCount())
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "subscriber channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Equal(t, 0, b.ClientCount())

	// No-ops after close.
	b.Publish(Event{Type: "reminder.alert", Data: map[string]string{"id": "x"}})
	b.PublishReminderEvent(KindUpdated, "x")
	b.Close()
}
