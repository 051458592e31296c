package notifications

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(userID, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func waitForConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Connections(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, hub.Connections(userID))
}

func TestHubBroadcastReachesUserChannel(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "user-1")
	waitForConnections(t, hub, "user-1", 1)

	hub.Broadcast("user-1", Event{
		Event: "user.company.joined",
		Data:  map[string]any{"company_id": 7, "user_id": "user-9"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))

	require.Equal(t, "user.user-1", got.Channel)
	require.Equal(t, "user.company.joined", got.Event)
}

func TestHubBroadcastSkipsOtherUsers(t *testing.T) {
	hub := NewHub()
	target := dialHub(t, hub, "target")
	other := dialHub(t, hub, "other")
	waitForConnections(t, hub, "target", 1)
	waitForConnections(t, hub, "other", 1)

	hub.BroadcastMany([]string{"target"}, Event{Event: "notification.created"})

	require.NoError(t, target.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Event
	require.NoError(t, target.ReadJSON(&got))
	require.Equal(t, "notification.created", got.Event)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var unexpected Event
	require.Error(t, other.ReadJSON(&unexpected))
}

func TestHubBroadcastWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("ghost", Event{Event: "user.company.joined"})
	require.Zero(t, hub.Connections("ghost"))
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "user-2")
	waitForConnections(t, hub, "user-2", 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, hub, "user-2", 0)
}

func TestChannelName(t *testing.T) {
	require.Equal(t, "user.abc", Channel("abc"))
}
