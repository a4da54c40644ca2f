package voice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TranscriptMessage is one message on the transcript stream.
//
// Interim transcripts (Final false) are ignored. Text is used when the
// service sends a single hypothesis instead of Alternatives.
type TranscriptMessage struct {
	Type         string   `json:"type"`
	Text         string   `json:"text,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Final        bool     `json:"final"`
	Error        string   `json:"error,omitempty"`
}

// alternatives returns the hypotheses carried by m, best first.
func (m TranscriptMessage) alternatives() []string {
	if len(m.Alternatives) > 0 {
		return m.Alternatives
	}
	if m.Text != "" {
		return []string{m.Text}
	}
	return nil
}

// WebSocketRecognizer reads transcripts from a streaming speech service.
// The connection is dialed lazily and re-dialed after any read error.
type WebSocketRecognizer struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

// NewWebSocketRecognizer creates a recognizer for cfg.URL.
func NewWebSocketRecognizer(cfg Config, logger *slog.Logger) *WebSocketRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketRecognizer{
		cfg:    cfg,
		logger: logger.With("component", "voice.websocket"),
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}
}

func (r *WebSocketRecognizer) conn(ctx context.Context) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.ws != nil {
		return r.ws, nil
	}

	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("voice: invalid url: %w", err)
	}
	if r.cfg.Language != "" {
		q := u.Query()
		q.Set("language", r.cfg.Language)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if r.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+r.cfg.Token)
	}

	ws, _, err := r.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	ws.SetPingHandler(func(appData string) error {
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	r.ws = ws
	r.logger.Info("transcript stream connected", "url", u.Redacted())
	return ws, nil
}

// drop closes ws if it is still the current connection.
func (r *WebSocketRecognizer) drop(ws *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ws == ws {
		r.ws = nil
	}
	ws.Close()
}

// Listen blocks until a final transcript arrives.
func (r *WebSocketRecognizer) Listen(ctx context.Context) ([]string, error) {
	ws, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	// Unblock the read when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if r.cfg.ReadTimeout > 0 && ctx.Err() == nil {
			ws.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		}

		var msg TranscriptMessage
		if err := ws.ReadJSON(&msg); err != nil {
			r.drop(ws)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("voice: read transcript: %w", err)
		}

		switch msg.Type {
		case "error":
			return nil, fmt.Errorf("voice: recognizer error: %s", msg.Error)
		case "", "transcript":
			if !msg.Final {
				continue
			}
			if alts := msg.alternatives(); len(alts) > 0 {
				return alts, nil
			}
		}
	}
}

// Close closes the stream. Listen returns ErrClosed afterwards.
func (r *WebSocketRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.ws == nil {
		return nil
	}
	err := r.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	r.ws.Close()
	r.ws = nil
	return err
}
