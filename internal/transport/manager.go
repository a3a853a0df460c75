package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pawchat/internal/auth"
	"pawchat/internal/config"
	"pawchat/internal/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Buffered outbound frames per connection.
	sendBufferSize = 256
)

// Handler receives lifecycle observations and decoded inbound frames from
// the manager. All callbacks run on the manager's read goroutine.
type Handler interface {
	HandleConnected()
	HandleDisconnected(reason error)
	HandleTransportError(reason error)
	HandleEvent(env *Envelope)
}

// Manager owns the persistent websocket connection for one authenticated
// session: dialing, the read/write pumps, and bounded reconnection. It is
// the only component allowed to create or destroy the connection.
type Manager struct {
	serverURL   string
	session     *auth.Session
	handler     Handler
	maxAttempts int
	retryDelay  time.Duration

	mu        sync.Mutex
	send      chan []byte
	connected bool
}

func NewManager(cfg *config.TransportConfig, session *auth.Session, handler Handler) *Manager {
	return &Manager{
		serverURL:   cfg.ServerURL,
		session:     session,
		handler:     handler,
		maxAttempts: cfg.ReconnectAttempts,
		retryDelay:  cfg.ReconnectDelay,
	}
}

// Connected reports whether a live connection is currently attached.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Send queues an envelope for the write pump. Fails without side effects
// when no connection is attached or the outbound buffer is full.
func (m *Manager) Send(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return utils.NewAppError(utils.ErrInvalidInput, "failed to encode outbound event", err)
	}

	m.mu.Lock()
	ch := m.send
	connected := m.connected
	m.mu.Unlock()

	if !connected || ch == nil {
		return utils.NewTransportNotReadyError()
	}
	select {
	case ch <- data:
		return nil
	default:
		return utils.NewAppError(utils.ErrTooManyRequests, "outbound send buffer full", nil)
	}
}

// Run drives the connection lifecycle until ctx is cancelled. With no valid
// session it logs and returns nil without ever dialing. Consecutive failed
// dial attempts are capped; a successful connect resets the counter.
func (m *Manager) Run(ctx context.Context) error {
	if m.session == nil {
		log.Println("Transport: no session credentials, connection not attempted")
		return nil
	}

	attempts := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.dialURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempts++
			log.Printf("Transport: dial attempt %d/%d failed: %v", attempts, m.maxAttempts, err)
			if attempts >= m.maxAttempts {
				m.handler.HandleTransportError(err)
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(m.retryDelay):
			}
			continue
		}

		attempts = 0
		m.attach()
		log.Printf("Transport: connected to %s as user %s", m.serverURL, m.session.UserID)
		m.handler.HandleConnected()

		readErr := m.serve(ctx, conn)
		m.detach()
		m.handler.HandleDisconnected(readErr)

		if ctx.Err() != nil {
			return nil
		}
		log.Printf("Transport: connection lost (%v), reconnecting in %v", readErr, m.retryDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.retryDelay):
		}
	}
}

func (m *Manager) dialURL() string {
	wsBase := m.serverURL
	if strings.HasPrefix(wsBase, "https://") {
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	} else if strings.HasPrefix(wsBase, "http://") {
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return wsBase + "/ws?token=" + url.QueryEscape(m.session.Token)
}

func (m *Manager) attach() {
	m.mu.Lock()
	m.send = make(chan []byte, sendBufferSize)
	m.connected = true
	m.mu.Unlock()
}

func (m *Manager) detach() {
	m.mu.Lock()
	m.send = nil
	m.connected = false
	m.mu.Unlock()
}

// serve runs the pumps for one connection and blocks until the read side
// fails or ctx is cancelled. The connection is always closed on return.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	m.mu.Lock()
	send := m.send
	m.mu.Unlock()

	done := make(chan struct{})
	go m.writePump(conn, send, done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	err := m.readPump(conn)
	close(done)
	conn.Close()
	return err
}

// readPump pumps frames from the websocket connection to the handler.
func (m *Manager) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Transport: read error: %v", err)
			}
			return err
		}

		env, err := DecodeEnvelope(raw)
		if err != nil || env.Event == "" {
			// Malformed frames are dropped, not fatal.
			log.Printf("Transport: dropping malformed frame: %v", err)
			continue
		}
		m.handler.HandleEvent(env)
	}
}

// writePump pumps queued frames to the websocket connection and keeps the
// connection alive with periodic pings.
func (m *Manager) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Transport: write error: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Transport: ping error: %v", err)
				return
			}
		}
	}
}
