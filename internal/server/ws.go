package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	streamInterval = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is the envelope for every message pushed to a realtime client.
type wsFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// handleWebSocket streams market, metrics, and alert updates to one client.
// The first frame is a full catch-up snapshot so a reconnecting client never
// starts from a blank state.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe()
	defer sub.Close()

	writeFrame := func(frameType string, data interface{}) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsFrame{
			Type:      frameType,
			Data:      data,
			Timestamp: time.Now(),
		})
	}

	if err := writeFrame("initial_data", gin.H{
		"market":        s.feedSvc.Current(),
		"metrics":       s.metricsSvc.Current(),
		"recent_alerts": s.bus.Recent(10),
	}); err != nil {
		s.logger.Warn("websocket initial frame failed", zap.Error(err))
		return
	}

	// Reader goroutine: consumes pongs and detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	stream := time.NewTicker(streamInterval)
	defer stream.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case alert, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeFrame("new_alert", alert); err != nil {
				return
			}
		case <-stream.C:
			if snap := s.feedSvc.Current(); snap != nil {
				if err := writeFrame("market_update", snap); err != nil {
					return
				}
			}
			if metricsSnap := s.metricsSvc.Current(); metricsSnap != nil {
				if err := writeFrame("metrics_update", metricsSnap); err != nil {
					return
				}
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
