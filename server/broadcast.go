package server

// Real-time pass event streaming over WebSocket. The server implements
// scheduler.EventBroadcaster so the orchestrator can push per-job outcomes
// to connected clients as a pass runs.

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pacerhq/pacer/scheduler"
)

const clientSendBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows direct WebSocket clients (no Origin header) and
// localhost browsers on any port.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan interface{}
	closeOnce sync.Once // Prevents double-close panics
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

type passJobStartedMessage struct {
	Type       string `json:"type"`
	Family     string `json:"family"`
	ScheduleID string `json:"schedule_id"`
	Name       string `json:"name"`
	Timestamp  int64  `json:"timestamp"`
}

type passJobCompletedMessage struct {
	Type       string `json:"type"`
	Family     string `json:"family"`
	ScheduleID string `json:"schedule_id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Timestamp  int64  `json:"timestamp"`
}

type passJobFailedMessage struct {
	Type       string `json:"type"`
	Family     string `json:"family"`
	ScheduleID string `json:"schedule_id"`
	Name       string `json:"name"`
	Error      string `json:"error"`
	DurationMs int    `json:"duration_ms"`
	Timestamp  int64  `json:"timestamp"`
}

type passCompletedMessage struct {
	Type          string `json:"type"`
	PassID        string `json:"pass_id"`
	ExecutedCount int    `json:"executed_count"`
	FailedCount   int    `json:"failed_count"`
	SkippedCount  int    `json:"skipped_count"`
	Timestamp     int64  `json:"timestamp"`
}

// handlePassEvents upgrades the connection and streams pass events until the
// client disconnects.
func (s *Server) handlePassEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan interface{}, clientSendBuffer),
	}

	s.clientsMu.Lock()
	s.clients[client] = true
	total := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Infow("Pass event client connected",
		"remote_addr", r.RemoteAddr,
		"total_clients", total,
	)

	go client.writePump()
	go s.readPump(client)
}

// writePump drains the send channel onto the connection. Exits when the
// channel closes or a write fails.
func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; its job is to notice disconnects
func (s *Server) readPump(client *wsClient) {
	defer func() {
		s.removeClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(client *wsClient) {
	s.clientsMu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
	}
	total := len(s.clients)
	s.clientsMu.Unlock()

	client.close()
	s.logger.Infow("Pass event client disconnected", "total_clients", total)
}

// closeClients disconnects all streaming clients during shutdown
func (s *Server) closeClients() {
	s.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clients = make(map[*wsClient]bool)
	s.clientsMu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// broadcastMessage sends a message to all connected clients.
// Returns the number of clients that accepted the message (channel not full).
func (s *Server) broadcastMessage(msg interface{}) int {
	s.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.Unlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- msg:
			sent++
		default:
			// Channel full - skip
		}
	}
	return sent
}

// BroadcastJobStarted notifies clients when a job claim succeeds
func (s *Server) BroadcastJobStarted(family scheduler.Family, scheduleID, name string) {
	sent := s.broadcastMessage(passJobStartedMessage{
		Type:       "pass_job_started",
		Family:     string(family),
		ScheduleID: scheduleID,
		Name:       name,
		Timestamp:  time.Now().Unix(),
	})
	s.logger.Debugw("Broadcasted job started",
		"family", family,
		"schedule_id", scheduleID,
		"clients", sent,
	)
}

// BroadcastJobCompleted notifies clients when a job finishes successfully
func (s *Server) BroadcastJobCompleted(family scheduler.Family, scheduleID, name string, durationMs int) {
	sent := s.broadcastMessage(passJobCompletedMessage{
		Type:       "pass_job_completed",
		Family:     string(family),
		ScheduleID: scheduleID,
		Name:       name,
		DurationMs: durationMs,
		Timestamp:  time.Now().Unix(),
	})
	s.logger.Debugw("Broadcasted job completed",
		"family", family,
		"schedule_id", scheduleID,
		"duration_ms", durationMs,
		"clients", sent,
	)
}

// BroadcastJobFailed notifies clients when a job execution fails
func (s *Server) BroadcastJobFailed(family scheduler.Family, scheduleID, name, errMsg string, durationMs int) {
	sent := s.broadcastMessage(passJobFailedMessage{
		Type:       "pass_job_failed",
		Family:     string(family),
		ScheduleID: scheduleID,
		Name:       name,
		Error:      errMsg,
		DurationMs: durationMs,
		Timestamp:  time.Now().Unix(),
	})
	s.logger.Debugw("Broadcasted job failed",
		"family", family,
		"schedule_id", scheduleID,
		"error", errMsg,
		"clients", sent,
	)
}

// BroadcastPassCompleted sends the pass tallies once a pass finishes
func (s *Server) BroadcastPassCompleted(summary *scheduler.PassSummary) {
	sent := s.broadcastMessage(passCompletedMessage{
		Type:          "pass_completed",
		PassID:        summary.PassID,
		ExecutedCount: summary.ExecutedCount,
		FailedCount:   summary.FailedCount,
		SkippedCount:  summary.SkippedCount,
		Timestamp:     time.Now().Unix(),
	})
	s.logger.Debugw("Broadcasted pass completed",
		"pass_id", summary.PassID,
		"executed_count", summary.ExecutedCount,
		"clients", sent,
	)
}
