package handlers

import (
	"log"
	"net/http"
	"time"

	"booker/internal/events"
	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are already filtered by the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// GET /api/ws/tasks/:id
// Streams status changes of one task until it reaches a terminal state or
// the client goes away.
func (h *Handlers) TaskStatusWS(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	task, err := h.Tasks.Get(userID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	// subscribe before the snapshot so no transition is lost in between
	updates, cancel := h.Hub.Subscribe(id)
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed task=%d: %v", id, err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot := events.Status{
		TaskID: task.ID, UserID: task.UserID, Status: string(task.Status), Attempts: task.Attempts,
		LastError: task.LastError, TriggerTime: task.TriggerTime, At: h.now(),
	}
	if !writeStatus(conn, snapshot) || task.Status.Terminal() {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case st, ok := <-updates:
			if !ok || !writeStatus(conn, st) {
				return
			}
			if st.Status == "completed" || st.Status == "failed" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, st.Status), time.Now().Add(wsWriteWait))
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, st events.Status) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(st); err != nil {
		log.Printf("[WS] write task=%d: %v", st.TaskID, err)
		return false
	}
	return true
}
