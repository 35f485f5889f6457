package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
	wsPingInterval    = 30 * time.Second
)

// handleEvents upgrades to a websocket and streams batches from the
// requested hub until the client disconnects or the hub closes its bus.
func (service *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !service.authorize(w, r) {
		return
	}

	hub, ok := service.hubFor(r)
	if !ok {
		http.Error(w, "unknown directory", http.StatusNotFound)
		return
	}

	batches, cancel, err := hub.Subscribe()
	if err != nil {
		http.Error(w, "event stream unavailable", http.StatusGone)
		return
	}
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		service.logWarn("websocket upgrade failed", map[string]string{"error": err.Error()})
		return
	}
	defer conn.Close()

	// Read loop only notices the peer going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case batch, open := <-batches:
			if !open {
				deadline := time.Now().Add(wsWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "watcher invalidated"), deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(batch); err != nil {
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
