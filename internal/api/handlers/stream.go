package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gtoboy77/MoneyTrainer/internal/aggregator"
	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

const (
	writeWait = 10 * time.Second
	// StateComplete marks the final message of a progress stream
	StateComplete = "complete"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// completeMessage closes a progress stream with the full report
type completeMessage struct {
	RunID   string                  `json:"run_id"`
	State   string                  `json:"state"`
	Success bool                    `json:"success"`
	Data    []holdings.SourceReport `json:"data"`
	Error   string                  `json:"error,omitempty"`
}

// StreamConstituents runs one aggregation and streams per-source progress
// events, then the final report, over a websocket.
// GET /ws/constituents
func (h *HoldingsHandler) StreamConstituents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 클라이언트가 연결을 끊으면 집계 취소
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := make(chan aggregator.Event, 64)
	var (
		result *holdings.Result
		runErr error
	)
	go func() {
		defer close(events)
		result, runErr = h.aggregator.RunWithObserver(ctx, func(ev aggregator.Event) {
			events <- ev
		})
	}()

	writeOK := true
	finished := 0
	for ev := range events {
		if ev.State.Terminal() {
			finished++
		}
		if !writeOK {
			continue // drain so workers never block
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.WithError(err).WithField("finished", finished).Debug("Progress stream closed by client")
			writeOK = false
			cancel()
		}
	}

	if !writeOK {
		return
	}

	final := completeMessage{State: StateComplete, Success: runErr == nil}
	if result != nil {
		final.RunID = result.RunID
		final.Data = result.Reports
	}
	if runErr != nil {
		final.Error = runErr.Error()
		if errors.Is(runErr, holdings.ErrAllSourcesFailed) {
			final.Error = "All sources failed."
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(final); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
