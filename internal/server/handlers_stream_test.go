package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readSSEData reads lines until the next data frame, skipping comment
// heartbeats and blank separators.
func readSSEData(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok {
			return data
		}
	}
}

func openStream(t *testing.T, f *fixture, token string) (*http.Response, *bufio.Reader) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.httpServer.URL+"/api/user/vote-stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := f.httpServer.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res, bufio.NewReader(res.Body)
}

func TestVoteStream_ConnectedThenEvents(t *testing.T) {
	f := newFixture(t)
	token := f.tokenFor(t, 7, "alice", false)

	res, reader := openStream(t, f, token)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	first := readSSEData(t, reader)
	assert.JSONEq(t, `{"type":"connected"}`, first)

	// The subscriber registers asynchronously from the handler goroutine,
	// but Subscribe has already run once the connected frame arrived.
	f.subscriber.publishAll(domain.BroadcastMessage{CompetitionID: 42, OccurredAt: time.Now().UTC()})

	var event domain.BroadcastMessage
	require.NoError(t, json.Unmarshal([]byte(readSSEData(t, reader)), &event))
	assert.Equal(t, 42, event.CompetitionID)
}

func TestVoteStream_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	res := doRequest(t, f, http.MethodGet, "/api/user/vote-stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestVoteStream_CapacityRejected(t *testing.T) {
	f := newFixture(t)
	f.server.sseClients.Store(int64(f.config.MaxClientsPerStream))
	token := f.tokenFor(t, 7, "alice", false)

	res := doRequest(t, f, http.MethodGet, "/api/user/vote-stream", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestVoteStream_SubscribeFailure(t *testing.T) {
	f := newFixture(t)
	f.subscriber.err = errors.New("redis down")
	token := f.tokenFor(t, 7, "alice", false)

	res := doRequest(t, f, http.MethodGet, "/api/user/vote-stream", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestAdminVoteStream_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	user := f.tokenFor(t, 1, "alice", false)

	res := doRequest(t, f, http.MethodGet, "/api/admin/vote-stream", user, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestTallySocket_DeliversBroadcasts(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.httpServer.URL, "http") + "/ws/tally"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens after the upgrade handshake completes
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	f.hubSub.ch <- domain.BroadcastMessage{CompetitionID: 5, OccurredAt: time.Now().UTC()}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.BroadcastMessage
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, 5, event.CompetitionID)
}
