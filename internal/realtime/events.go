// file: internal/realtime/events.go
// version: 2.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventJobSubmitted EventType = "job.submitted"
	EventJobUpdated   EventType = "job.updated"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
	EventConnected    EventType = "connection.established"
	EventHeartbeat    EventType = "heartbeat"
)

const (
	clientBuffer     = 100
	defaultHeartbeat = 15 * time.Second
)

// Event is one message pushed to SSE clients. ID carries the job id and is
// empty for connection-level events.
type Event struct {
	Type        EventType           `json:"type"`
	ID          string              `json:"id,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Job         *models.DownloadJob `json:"job,omitempty"`
	Blacklisted bool                `json:"blacklisted,omitempty"`
	ClientID    string              `json:"client_id,omitempty"`
}

// Client represents a connected SSE client
type Client struct {
	ID      string
	Channel chan *Event

	mu   sync.RWMutex
	jobs map[string]bool // jobs this client follows; empty means all
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, clientBuffer),
		jobs:    make(map[string]bool),
	}
}

// Follow restricts the client to events of the given job.
func (c *Client) Follow(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[jobID] = true
}

// Unfollow stops following a job.
func (c *Client) Unfollow(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, jobID)
}

// Wants reports whether the client should receive an event for jobID.
func (c *Client) Wants(jobID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return jobID == "" || len(c.jobs) == 0 || c.jobs[jobID]
}

// EventHub fans job changes out to SSE clients. It implements
// acquisition.Notifier; a slow client loses events rather than stalling
// the poller.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	heartbeat time.Duration
	now       func() time.Time
	log       *log.Entry
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[string]*Client),
		heartbeat: defaultHeartbeat,
		now:       time.Now,
		log:       logger.For("realtime"),
	}
}

// SetHeartbeat changes how often idle streams get a heartbeat.
func (h *EventHub) SetHeartbeat(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.log.WithFields(log.Fields{"client": client.ID, "clients": len(h.clients)}).Debug("client registered")
}

// UnregisterClient removes a client and closes its channel.
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		h.log.WithFields(log.Fields{"client": clientID, "clients": len(h.clients)}).Debug("client unregistered")
	}
}

// Close disconnects every client, ending their streams.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.Channel)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client that wants it.
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.Wants(event.ID) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			h.log.WithFields(log.Fields{"client": client.ID, "event": event.Type}).Warn("client channel full, dropping event")
		}
	}
}

func (h *EventHub) jobEvent(t EventType, job models.DownloadJob) *Event {
	return &Event{Type: t, ID: job.ID, Timestamp: h.now().UTC(), Job: &job}
}

// JobSubmitted publishes a freshly submitted job.
func (h *EventHub) JobSubmitted(job models.DownloadJob) {
	h.Broadcast(h.jobEvent(EventJobSubmitted, job))
}

// JobUpdated publishes a polled change; completion gets its own type.
func (h *EventHub) JobUpdated(job models.DownloadJob) {
	t := EventJobUpdated
	if job.Status == models.JobCompleted {
		t = EventJobCompleted
	}
	h.Broadcast(h.jobEvent(t, job))
}

// JobFailed publishes a failure and whether the release was blacklisted.
func (h *EventHub) JobFailed(job models.DownloadJob, blacklisted bool) {
	e := h.jobEvent(EventJobFailed, job)
	e.Blacklisted = blacklisted
	h.Broadcast(e)
}

// HandleSSE streams events until the client goes away. ?job=<id> limits
// the stream to one job.
func (h *EventHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.log.WithError(err).Debug("cannot clear write deadline")
	}

	client := NewClient(ulid.Make().String())
	if jobID := c.Query("job"); jobID != "" {
		client.Follow(jobID)
	}
	h.RegisterClient(client)
	defer h.UnregisterClient(client.ID)

	send := func(e *Event) {
		c.SSEvent(string(e.Type), e)
		c.Writer.Flush()
	}
	send(&Event{Type: EventConnected, Timestamp: h.now().UTC(), ClientID: client.ID})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			send(event)
		case <-ticker.C:
			send(&Event{Type: EventHeartbeat, Timestamp: h.now().UTC()})
		}
	}
}
