package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

const writeWait = 10 * time.Second

// NotificationFeed streams a user's notifications. Cancel must be called once the stream is no longer read.
type NotificationFeed interface {
	Subscribe(username string) (<-chan domain.Notification, func())
}

type WSHandler struct {
	feed     NotificationFeed
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(feed NotificationFeed, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		feed: feed,
		log:  log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type subscribedPayload struct {
	Username string `json:"username"`
}

type notificationPayload struct {
	QuizTitle string    `json:"quizTitle"`
	Score     float64   `json:"score"`
	SentAt    time.Time `json:"sentAt"`
}

// Serve upgrades the request and pushes the caller's quiz notifications until the client disconnects.
// Inbound frames are read only to notice the disconnect.
func (h *WSHandler) Serve(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user", principal.Username, "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(principal.Username)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", "user", principal.Username, "error", err)
				// unblocks the read loop below
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case n, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage{Type: "notification", Payload: notificationPayload{
					QuizTitle: n.QuizTitle,
					Score:     n.Score,
					SentAt:    n.SentAt,
				}}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "subscribed", Payload: subscribedPayload{Username: principal.Username}}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
