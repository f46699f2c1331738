package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soniq-ml/ctcd/internal/decoder"
	"github.com/soniq-ml/ctcd/internal/mempool"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// StreamRequest is a control message on the streaming endpoint. Score
// frames may arrive either as "frame" messages or as binary messages of
// raw little-endian float32 values.
type StreamRequest struct {
	Type string `json:"type"` // "start", "frame", "hypothesis", "reset"

	// start options
	BlankIndex         *int `json:"blank_index,omitempty"`
	PreserveAlignments bool `json:"preserve_alignments,omitempty"`
	ComputeTimestamps  bool `json:"compute_timestamps,omitempty"`

	// frame payload
	Frame []float32 `json:"frame,omitempty"`
}

// StreamResponse is a server message on the streaming endpoint.
type StreamResponse struct {
	Type       string            `json:"type"` // "started", "hypothesis", "error"
	Frames     int               `json:"frames,omitempty"`
	Hypothesis *HypothesisResult `json:"hypothesis,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorType  string            `json:"error_type,omitempty"`
}

// streamHandler upgrades the connection and decodes score frames
// incrementally as they arrive.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("streaming connection established", "remote_addr", r.RemoteAddr)
	s.handleStreamConnection(conn)
}

// streamSession holds the per-connection decode state.
type streamSession struct {
	stream *decoder.Stream
}

func (s *Server) handleStreamConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Ping to keep the connection alive.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	session := &streamSession{}
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("websocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		websocketFramesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.TextMessage:
			s.handleStreamMessage(conn, session, data)
		case websocket.BinaryMessage:
			s.handleBinaryFrame(conn, session, data)
		}
	}
}

func (s *Server) handleStreamMessage(conn *websocket.Conn, session *streamSession, data []byte) {
	var req StreamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendStreamError(conn, "invalid_request", fmt.Sprintf("failed to parse message: %v", err))
		return
	}

	switch req.Type {
	case "start":
		cfg := decoder.Config{
			BlankIndex:         s.blankIndex,
			PreserveAlignments: req.PreserveAlignments,
			ComputeTimestamps:  req.ComputeTimestamps,
		}
		if req.BlankIndex != nil {
			cfg.BlankIndex = *req.BlankIndex
		}
		session.stream = decoder.NewGreedy(cfg).NewStream()
		s.sendStreamResponse(conn, StreamResponse{Type: "started"})

	case "frame":
		if session.stream == nil {
			s.sendStreamError(conn, "no_session", "send a start message before frames")
			return
		}
		if err := session.stream.Push(req.Frame); err != nil {
			s.sendStreamError(conn, "bad_frame", err.Error())
		}

	case "hypothesis":
		if session.stream == nil {
			s.sendStreamError(conn, "no_session", "send a start message before requesting a hypothesis")
			return
		}
		hyp := ToWire(session.stream.Hypothesis())
		s.sendStreamResponse(conn, StreamResponse{
			Type:       "hypothesis",
			Frames:     session.stream.Len(),
			Hypothesis: &hyp,
		})

	case "reset":
		if session.stream != nil {
			session.stream.Reset()
		}
		s.sendStreamResponse(conn, StreamResponse{Type: "started"})

	default:
		s.sendStreamError(conn, "invalid_request", fmt.Sprintf("unknown message type %q", req.Type))
	}
}

// handleBinaryFrame treats a binary message as one score frame of raw
// little-endian float32 values. The frame is staged through the buffer
// pool; the stream copies what it keeps.
func (s *Server) handleBinaryFrame(conn *websocket.Conn, session *streamSession, data []byte) {
	if session.stream == nil {
		s.sendStreamError(conn, "no_session", "send a start message before frames")
		return
	}
	if len(data) == 0 || len(data)%4 != 0 {
		s.sendStreamError(conn, "bad_frame", fmt.Sprintf("binary frame must be a multiple of 4 bytes, got %d", len(data)))
		return
	}

	n := len(data) / 4
	frame := mempool.GetFloat32(n)
	defer mempool.PutFloat32(frame)
	for i := 0; i < n; i++ {
		frame[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	if err := session.stream.Push(frame); err != nil {
		s.sendStreamError(conn, "bad_frame", err.Error())
	}
}

func (s *Server) sendStreamResponse(conn *websocket.Conn, resp StreamResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal stream response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("failed to write stream response", "error", err)
		return
	}
	websocketFramesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendStreamError(conn *websocket.Conn, errorType, message string) {
	s.sendStreamResponse(conn, StreamResponse{
		Type:      "error",
		Error:     message,
		ErrorType: errorType,
	})
}
