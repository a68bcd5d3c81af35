package ws

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	r := mux.NewRouter()
	r.HandleFunc("/api/ws/{projectId}", hub.Handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialRoom(t *testing.T, srv *httptest.Server, projectID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/" + projectID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForRoomSize(t *testing.T, hub *Hub, projectID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomSize(projectID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, hub.RoomSize(projectID))
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestBroadcastReachesRoomSubscribers(t *testing.T) {
	hub, srv := newHubServer(t)

	first := dialRoom(t, srv, "p1")
	second := dialRoom(t, srv, "p1")
	waitForRoomSize(t, hub, "p1", 2)

	sent := Event{Type: TaskCreated, ProjectID: "p1", TaskID: "t1"}
	hub.Broadcast("p1", sent)

	for _, conn := range []*websocket.Conn{first, second} {
		got := readEvent(t, conn)
		require.Equal(t, TaskCreated, got.Type)
		require.Equal(t, "t1", got.TaskID)
	}
}

func TestBroadcastIsolatesRooms(t *testing.T) {
	hub, srv := newHubServer(t)

	inRoom := dialRoom(t, srv, "p1")
	otherRoom := dialRoom(t, srv, "p2")
	waitForRoomSize(t, hub, "p1", 1)
	waitForRoomSize(t, hub, "p2", 1)

	hub.Broadcast("p1", Event{Type: SubtaskAdded, ProjectID: "p1", TaskID: "t1", SubtaskID: "s1"})

	got := readEvent(t, inRoom)
	require.Equal(t, SubtaskAdded, got.Type)

	require.NoError(t, otherRoom.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray Event
	require.Error(t, otherRoom.ReadJSON(&stray))
}

func TestConcurrentBroadcastsSerializePerConnection(t *testing.T) {
	hub, srv := newHubServer(t)

	conn := dialRoom(t, srv, "p1")
	waitForRoomSize(t, hub, "p1", 1)

	// Simultaneous mutations in one project broadcast from their own
	// goroutines; every event must land on the shared connection intact.
	const writers = 30
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			hub.Broadcast("p1", Event{Type: TaskUpdated, ProjectID: "p1", TaskID: "t1"})
		}()
	}

	for i := 0; i < writers; i++ {
		got := readEvent(t, conn)
		require.Equal(t, TaskUpdated, got.Type)
	}
	wg.Wait()
	require.Equal(t, 1, hub.RoomSize("p1"))
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	hub, _ := newHubServer(t)
	hub.Broadcast("nobody-home", Event{Type: TaskDeleted, ProjectID: "nobody-home"})
	require.Equal(t, 0, hub.RoomSize("nobody-home"))
}

func TestDisconnectLeavesRoom(t *testing.T) {
	hub, srv := newHubServer(t)

	conn := dialRoom(t, srv, "p1")
	waitForRoomSize(t, hub, "p1", 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	waitForRoomSize(t, hub, "p1", 0)
}

func TestBroadcastEvictsDeadConnections(t *testing.T) {
	hub, srv := newHubServer(t)

	conn := dialRoom(t, srv, "p1")
	waitForRoomSize(t, hub, "p1", 1)

	// Kill the peer without a close handshake, then keep broadcasting
	// until the write path notices and drops it.
	require.NoError(t, conn.UnderlyingConn().Close())

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize("p1") > 0 && time.Now().Before(deadline) {
		hub.Broadcast("p1", Event{Type: TaskUpdated, ProjectID: "p1", TaskID: "t1"})
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 0, hub.RoomSize("p1"))
}

func TestOriginCheck(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"})
	r := mux.NewRouter()
	r.HandleFunc("/api/ws/{projectId}", hub.Handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/p1"

	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	header = map[string][]string{"Origin": {"https://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
