// Package xrbridge connects the desktop viewer to a WebXR page over a
// websocket. The page owns the immersive session and forwards capabilities,
// session changes, controller poses and button events.
package xrbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/probe"
	"github.com/Faultbox/xrview/pkg/math"
)

// ErrNoClient is reported by IsSessionSupported before any page has sent its
// capabilities.
var ErrNoClient = errors.New("no XR client connected")

// Path is the websocket endpoint.
const Path = "/ws"

// EventSink receives controller events.
type EventSink interface {
	Push(e interaction.Event) bool
}

// ModeRequester receives session changes.
type ModeRequester interface {
	RequestMode(m presentation.Mode)
}

// Capabilities are the immersive session kinds the page reported.
type Capabilities struct {
	AR bool
	VR bool
}

type pose struct {
	position math.Vec3
	tracked  bool
}

type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(msg Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return c.conn.WriteJSON(msg)
}

// Server is the bridge endpoint. It is safe for concurrent use.
type Server struct {
	sink     EventSink
	modes    ModeRequester
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu        sync.RWMutex
	poses     map[interaction.Hand]pose
	caps      Capabilities
	capsKnown bool
	clients   map[*client]struct{}
}

// New creates a bridge forwarding events to sink and session changes to modes.
func New(sink EventSink, modes ModeRequester) *Server {
	return &Server{
		sink:  sink,
		modes: modes,
		upgrader: websocket.Upgrader{
			// The page is served from a different origin than the bridge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logger.Named("xrbridge"),
		poses:   make(map[interaction.Hand]pose),
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebSocket)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	s.log.Info("bridge listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
	}
}

// Clients returns the number of connected pages.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Sample returns the latest pose of hand.
func (s *Server) Sample(hand interaction.Hand) interaction.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.poses[hand]
	return interaction.Sample{ControllerPosition: p.position, Tracked: ok && p.tracked}
}

// Capabilities returns the last capabilities reported by a page.
func (s *Server) Capabilities() (Capabilities, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps, s.capsKnown
}

// IsSessionSupported implements probe.XRSystem from the reported capabilities.
func (s *Server) IsSessionSupported(_ context.Context, mode probe.SessionMode) (bool, error) {
	caps, ok := s.Capabilities()
	if !ok {
		return false, ErrNoClient
	}
	switch mode {
	case probe.ImmersiveAR:
		return caps.AR, nil
	case probe.ImmersiveVR:
		return caps.VR, nil
	}
	return false, nil
}

// NotifyMode asks connected pages to enter or leave a session.
func (s *Server) NotifyMode(m presentation.Mode) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	msg := Message{Type: TypeMode, Mode: m.String()}
	for _, c := range clients {
		if err := c.write(msg); err != nil {
			s.log.Warn("mode notify failed", zap.Error(err))
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("XR client connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		last := len(s.clients) == 0
		if last {
			clear(s.poses)
		}
		s.mu.Unlock()
		conn.Close()
		// The session cannot outlive its page.
		if last && s.modes != nil {
			s.modes.RequestMode(presentation.Desktop)
		}
		s.log.Info("XR client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("malformed bridge message", zap.Error(err))
			continue
		}
		if err := s.handle(msg); err != nil {
			s.log.Warn("bridge message ignored", zap.String("type", msg.Type), zap.Error(err))
		}
	}
}

func (s *Server) handle(msg Message) error {
	switch msg.Type {
	case TypeCapabilities:
		s.mu.Lock()
		s.caps = Capabilities{AR: msg.AR != nil && *msg.AR, VR: msg.VR != nil && *msg.VR}
		s.capsKnown = true
		s.mu.Unlock()
		s.log.Debug("capabilities reported", zap.Boolp("ar", msg.AR), zap.Boolp("vr", msg.VR))

	case TypeSession:
		mode, err := msg.sessionMode()
		if err != nil {
			return err
		}
		if s.modes != nil {
			s.modes.RequestMode(mode)
		}

	case TypePose:
		pos, err := msg.position()
		if err != nil {
			return err
		}
		tracked := msg.Tracked == nil || *msg.Tracked
		s.mu.Lock()
		s.poses[msg.hand()] = pose{position: pos, tracked: tracked}
		s.mu.Unlock()

	case TypeEvent:
		e, err := msg.event()
		if err != nil {
			return err
		}
		if s.sink != nil && !s.sink.Push(e) {
			s.log.Debug("event discarded", zap.Stringer("event", e.Type), zap.String("hand", string(e.Hand)))
		}

	default:
		return ErrBadMessage
	}
	return nil
}
