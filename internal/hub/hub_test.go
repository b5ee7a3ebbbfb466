package hub

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestHubBroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(quietLogger())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected\n", readLine(t, body))
	assert.Equal(t, "\n", readLine(t, body))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	events := make(chan map[string]string, 1)
	go Forward(h, events)
	events <- map[string]string{"type": "inference_completed"}
	close(events)

	assert.Equal(t, `data: {"type":"inference_completed"}`+"\n", readLine(t, body))

	cancel()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubServeAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(quietLogger())
	cancel()
	h.Run(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Zero(t, h.ClientCount())
	assert.Empty(t, rec.Body.String())
}
