package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
	"github.com/iicchikun/ii-speech-to-text/internal/stream"
)

// writeTimeout bounds each outbound event frame so a stalled client cannot
// park the writer goroutine forever.
const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleLive implements the /live WebSocket endpoint. Clients send binary
// frames of little-endian 16-bit mono PCM at the configured sample rate and
// receive JSON transcript events as enough audio accumulates. The session is
// destroyed on disconnect; audio below the emission threshold is dropped.
func (h *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		language = h.config.Recognition.DefaultLanguage
	}

	session := stream.NewSession(stream.SessionConfig{
		Language: language,
		Buffer: stream.BufferConfig{
			SampleRate:       h.config.Audio.SampleRate,
			MinProcess:       h.config.Stream.GetMinProcess(),
			ContextRetention: h.config.Stream.GetContextRetention(),
		},
	}, h.recognizer, h.logger)
	session.SetTransportCloser(conn.Close)

	h.sessions.Register(session)
	h.metrics.SetLiveSessions(h.sessions.ActiveCount())

	h.logger.Info("Live session started",
		slog.String("session_id", session.ID),
		slog.String("remote", r.RemoteAddr),
		slog.String("language", language),
	)

	// Writer: forwards session events until the session closes. A dead or
	// stalled client aborts the session so the read loop below cannot stay
	// wedged feeding queues nobody drains.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range session.Events() {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Live event write failed",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
				session.Abort()
				session.CloseTransport()
				return
			}
		}
	}()

	// Reader: feeds binary PCM frames into the session in arrival order.
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		session.AddBlock(audio.BytesToSamples(data))
	}

	session.Close()
	<-done
	conn.Close()

	h.sessions.Remove(session.ID)
	h.metrics.SetLiveSessions(h.sessions.ActiveCount())

	info := session.GetSessionInfo()
	h.metrics.RecordLiveSessionClosed(info.ChunksProduced, info.EventsEmitted, info.EventsSuppressed)

	h.logger.Info("Live session ended",
		slog.String("session_id", session.ID),
		slog.Duration("duration", info.Duration),
		slog.Uint64("chunks_produced", info.ChunksProduced),
		slog.Uint64("events_emitted", info.EventsEmitted),
		slog.Uint64("events_suppressed", info.EventsSuppressed),
	)
}
