package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"daytrade-core/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local operator UI only; origin enforcement would go here for anything
	// reachable beyond localhost.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsFrame struct {
	Event   events.Event `json:"event"`
	Payload any          `json:"payload"`
	At      time.Time    `json:"at"`
}

// handleWS streams every bus event to the client as JSON frames. Reads are
// drained only to detect the close.
func (s *Server) handleWS(c *gin.Context) {
	if s.opts.Bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus not available"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] ws upgrade: %v", err)
		return
	}

	topics := []events.Event{
		events.EventDecision,
		events.EventIntentCreated,
		events.EventIntentApproved,
		events.EventIntentRejected,
		events.EventIntentPending,
		events.EventPositionOpened,
		events.EventPositionClosed,
		events.EventPartialExit,
		events.EventSafeMode,
		events.EventRiskAlert,
		events.EventDailyRollover,
	}

	type tagged struct {
		event   events.Event
		payload any
	}
	merged := make(chan tagged, 64)
	done := make(chan struct{})

	var cancels []func()
	for _, topic := range topics {
		ch, cancel := s.opts.Bus.Subscribe(topic, 16)
		cancels = append(cancels, cancel)
		go func(topic events.Event, ch <-chan any) {
			for {
				select {
				case <-done:
					return
				case msg, okC := <-ch:
					if !okC {
						return
					}
					select {
					case merged <- tagged{topic, msg}:
					default:
					}
				}
			}
		}(topic, ch)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			close(done)
			for _, cancel := range cancels {
				cancel()
			}
			conn.Close()
		})
	}
	defer cleanup()

	go func() {
		defer cleanup()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case t := <-merged:
			frame := wsFrame{Event: t.event, Payload: t.payload, At: time.Now()}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}
