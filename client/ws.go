package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = time.Second
)

// Subscriber keeps one project room subscription alive and folds every
// broadcast event into the store. After a dropped connection it redials up
// to maxReconnectAttempts times; OnReconnect runs after each successful
// redial so the owner can refetch state missed while offline.
type Subscriber struct {
	baseURL   string
	token     string
	projectID string
	store     *Store

	// OnReconnect is optional. It is called from the subscriber goroutine.
	OnReconnect func()
}

func NewSubscriber(baseURL, token, projectID string, store *Store) *Subscriber {
	return &Subscriber{
		baseURL:   wsScheme(strings.TrimRight(baseURL, "/")),
		token:     token,
		projectID: projectID,
		store:     store,
	}
}

func wsScheme(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.baseURL+"/api/ws/"+s.projectID, header)
	return conn, err
}

// Run blocks until the context is cancelled or the reconnect budget is
// spent. The returned error is the last dial failure, or nil on a clean
// shutdown.
func (s *Subscriber) Run(ctx context.Context) error {
	first := true
	for {
		conn, err := s.redial(ctx)
		if err != nil {
			return err
		}
		if conn == nil {
			return nil
		}

		if !first && s.OnReconnect != nil {
			s.OnReconnect()
		}
		first = false

		s.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// redial attempts the connection up to maxReconnectAttempts times. A nil
// conn with nil error means the context ended.
func (s *Subscriber) redial(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, nil
		}
		conn, err := s.dial(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logging.Logger.Warnf("Event ID: WS_DIAL_FAILED, Description: Connection attempt %d/%d for project %s failed: %v", attempt, maxReconnectAttempts, s.projectID, err)

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(reconnectDelay):
		}
	}
	return nil, lastErr
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event ws.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil {
				logging.Logger.Warnf("Event ID: WS_READ_FAILED, Description: Connection for project %s dropped: %v", s.projectID, err)
			}
			return
		}
		s.store.Merge(event)
	}
}
