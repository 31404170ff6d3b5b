package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// StreamTrack handles GET /tracks/{id}/ws.
// After the upgrade every event published for the track is written to the
// socket as one JSON text message. Messages from the client are discarded;
// reading only detects the close. The server pings the client and drops
// the stream when no pong arrives within streamPongWait.
func (s *Server) StreamTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.tracks.Exists(r.Context(), id); err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.DebugContext(r.Context(), "websocket upgrade failed", "track_id", id, "error", err)
		return
	}
	defer conn.Close()

	client := s.hub.Register(id)
	s.logger.DebugContext(r.Context(), "stream opened", "track_id", id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ping := time.NewTicker(streamPingPeriod)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Unregister closes client.Send, which ends the writer.
	s.hub.Unregister(client)
	<-done
	s.logger.DebugContext(r.Context(), "stream closed", "track_id", id)
}
