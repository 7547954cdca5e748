package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mindpulse/internal/sse"
)

func TestHeadlineAndBody(t *testing.T) {
	assert.Equal(t, "🔔 Standup", Headline("Standup", "🔔"))
	assert.Equal(t, "Standup", Headline("Standup", ""))
	assert.Equal(t, "bring notes", Body("Standup", "bring notes"))
	assert.Equal(t, "Standup", Body("Standup", "  "))
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	var got []string
	rec := func(tag string) Notifier {
		return Func(func(_ context.Context, title, _, _ string) { got = append(got, tag+":"+title) })
	}
	Multi{rec("a"), rec("b")}.Notify(context.Background(), "t", "b", "e")
	assert.Equal(t, []string{"a:t", "b:t"}, got)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	l.Notify(context.Background(), "Standup", "daily sync", "⏰")

	out := buf.String()
	assert.Contains(t, out, `"title":"⏰ Standup"`)
	assert.Contains(t, out, `"body":"daily sync"`)
}

type capturePublisher struct{ events []sse.Event }

func (c *capturePublisher) Publish(e sse.Event) { c.events = append(c.events, e) }

func TestBrokerNotifier(t *testing.T) {
	pub := &capturePublisher{}
	NewBroker(pub).Notify(context.Background(), "Call mom", "Call mom", "📞")

	require.Len(t, pub.events, 1)
	assert.Equal(t, "reminder.alert", pub.events[0].Type)
	data := pub.events[0].Data.(map[string]string)
	assert.Equal(t, "📞 Call mom", data["title"])
}

func TestTelegramSend(t *testing.T) {
	var got telegramSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "42", nil)
	defer tg.Close()
	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "hello", got.Text)
}

func TestTelegramNotifyLogsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	tg := NewTelegram(srv.URL, "TOKEN", "42", slog.New(slog.NewJSONHandler(&buf, nil)))

	err := tg.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	tg.Notify(context.Background(), "t", "b", "e")
	tg.Close()
	assert.True(t, strings.Contains(buf.String(), "telegram delivery failed"))
}

func TestTelegramNotifyDoesNotWaitForAPI(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req telegramSendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		<-release
		mu.Lock()
		texts = append(texts, req.Text)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "42", nil)

	start := time.Now()
	tg.Notify(context.Background(), "Standup", "Standup", "🔔")
	tg.Notify(context.Background(), "Pills", "after lunch", "💊")
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	close(release)
	tg.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"🔔 Standup", "💊 Pills\nafter lunch"}, texts)

	// Alerts after Close are dropped, not panicking on a closed outbox.
	tg.Notify(context.Background(), "late", "", "")
}
