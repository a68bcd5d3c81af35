package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
)

// NotificationsClient posts mention notifications to the external
// notifications service. Calls go through a circuit breaker and are
// fire-and-forget: a failed delivery is logged, never surfaced to the
// request that triggered it.
type NotificationsClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewNotificationsClient(baseURL string) *NotificationsClient {
	return &NotificationsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notifications-cb",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
			},
		}),
	}
}

// MentionNotification tells the notifications service who was mentioned
// where.
type MentionNotification struct {
	ProjectID string   `json:"projectId"`
	TaskID    string   `json:"taskId"`
	SubtaskID string   `json:"subtaskId"`
	CommentID string   `json:"commentId"`
	Author    string   `json:"author"`
	Mentioned []string `json:"mentioned"`
}

func (c *NotificationsClient) NotifyMentions(n MentionNotification) {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Post(c.baseURL+"/api/notifications/mentions", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("notifications service returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: MENTION_NOTIFY_FAILED, Description: Could not deliver mention notification for comment %s: %v", n.CommentID, err)
	}
}
