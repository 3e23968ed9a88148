package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamCatchUp   = 50
	streamWriteWait = 5 * time.Second
	streamPingEvery = 15 * time.Second
)

// handleStream upgrades to a websocket and pushes session events as JSON
// text frames. Recent events are sent first as catch-up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.countStreamConn() {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.Session.Subscribe()
	defer s.Session.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID, "remote", clientIP(r))

	// Reader: only control frames are expected; a read error means the
	// client went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4 * 1024)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, e := range s.Session.Events(streamCatchUp) {
		if err := writeFrame(conn, e); err != nil {
			return
		}
	}

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := writeFrame(conn, e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
