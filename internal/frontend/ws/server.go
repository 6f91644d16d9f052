package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/auth"
	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/session"
	"github.com/cory-johannsen/tileworld/internal/game/world"
	"github.com/cory-johannsen/tileworld/internal/gameserver"
	"github.com/cory-johannsen/tileworld/internal/observability"
)

const (
	handshakeTimeout = 10 * time.Second
	maxNameLen       = 32
	maxFrameBytes    = 16 * 1024
)

// Notices sent to clients over the socket.
const (
	BadFrameText   = "Unrecognized request."
	NameTakenText  = "That name is already in use."
	BadHelloText   = "Expected a hello frame with a name."
	AlreadyInText  = "You are already logged in."
	ServerDownText = "The server is shutting down."
)

// Deps are the game services the transport drives.
type Deps struct {
	World    *world.Manager
	Sessions *session.Manager
	Handler  *gameserver.Handler
	Encoder  Encoder
	// AdminHash is the bcrypt hash unlocking admin commands; empty disables it.
	AdminHash string
}

// Server accepts websocket clients and bridges them to the game.
type Server struct {
	cfg      config.TransportConfig
	deps     Deps
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	conns    map[*websocket.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

// NewServer creates a websocket server.
//
// Precondition: cfg must have passed validation; deps fields other than
// AdminHash must be non-nil.
func NewServer(cfg config.TransportConfig, deps Deps, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Router returns the HTTP routes: the websocket endpoint and /healthz.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.AccessLog(s.logger))
	r.Get("/healthz", s.healthz)
	r.Get(s.cfg.Path, s.serveWS)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"rooms":   s.deps.World.RoomCount(),
		"players": s.deps.Sessions.Count(),
	})
}

// Start listens on the configured address and serves until Stop.
//
// Postcondition: Returns nil after a clean Stop.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: handshakeTimeout,
	}
	s.mu.Lock()
	s.http, s.listener = srv, ln
	s.mu.Unlock()

	s.logger.Info("websocket server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.cfg.Path),
	)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Addr returns the bound address once serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, closes every client socket, and waits for their
// handlers to finish or ctx to end.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.stopping = true
	for c := range s.conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ServerDownText),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// track registers c for Stop. It reports false once Stop has begun.
func (s *Server) track(c *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()
	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)
	conn.SetReadLimit(maxFrameBytes)

	start := time.Now()
	sess, err := s.handshake(conn)
	if err != nil {
		s.logger.Info("handshake failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	log := s.logger.With(zap.String("client", sess.ID.String()), zap.String("player", sess.Player.Name()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go s.writeLoop(conn, sess, log, writerDone)

	if err := s.deps.Handler.Join(ctx, sess.Player); err != nil {
		log.Error("joining world", zap.Error(err))
	} else {
		s.readLoop(ctx, conn, sess, log)
		s.deps.Handler.Leave(sess.Player)
	}
	if err := s.deps.Sessions.Disconnect(sess.ID); err != nil {
		log.Warn("disconnecting", zap.Error(err))
	}
	<-writerDone
	log.Info("session ended", zap.Duration("duration", time.Since(start)))
}

// handshake reads the hello frame and registers the session.
func (s *Server) handshake(conn *websocket.Conn) (*session.Session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	frame, err := DecodeClientFrame(data)
	if err == nil && frame.Hello == nil {
		err = ErrEmptyFrame
	}
	if err != nil {
		_ = s.writeFrame(conn, ServerFrame{Type: TypeError, Text: BadHelloText})
		return nil, fmt.Errorf("expected hello: %w", err)
	}
	name := strings.TrimSpace(frame.Hello.Name)
	if name == "" || len(name) > maxNameLen {
		_ = s.writeFrame(conn, ServerFrame{Type: TypeError, Text: BadHelloText})
		return nil, fmt.Errorf("invalid name %q", frame.Hello.Name)
	}

	sess, err := s.deps.Sessions.Connect(name, strings.TrimSpace(frame.Hello.Email))
	if err != nil {
		if errors.Is(err, session.ErrNameTaken) {
			_ = s.writeFrame(conn, ServerFrame{Type: TypeError, Text: NameTakenText})
		}
		return nil, err
	}
	if auth.IsAdmin(s.deps.AdminHash, frame.Hello.Password) {
		sess.Player.SetAdmin(true)
	}
	if err := s.writeFrame(conn, ServerFrame{Type: TypeWelcome, ClientID: sess.ID.String()}); err != nil {
		_ = s.deps.Sessions.Disconnect(sess.ID)
		return nil, err
	}
	return sess, nil
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, log *zap.Logger) {
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read ended", zap.Error(err))
			}
			return
		}
		frame, err := DecodeClientFrame(data)
		if err != nil {
			s.deps.Sessions.Deliver(sess.Player, message.Notice{To: sess.Player, Text: BadFrameText})
			continue
		}
		in, ok := frame.Intent()
		if !ok {
			s.deps.Sessions.Deliver(sess.Player, message.Notice{To: sess.Player, Text: AlreadyInText})
			continue
		}
		s.deps.Handler.Handle(ctx, sess.Player, in)
	}
}

// writeLoop is the only writer after the handshake. It exits when the
// session's outbox is closed.
func (s *Server) writeLoop(conn *websocket.Conn, sess *session.Session, log *zap.Logger, done chan<- struct{}) {
	defer close(done)
	broken := false
	for msg := range sess.Outbox.Messages() {
		if broken {
			continue
		}
		frame, err := s.deps.Encoder.Encode(msg)
		if err != nil {
			log.Warn("encoding message", zap.String("kind", string(msg.Kind())), zap.Error(err))
			continue
		}
		if err := s.writeFrame(conn, frame); err != nil {
			log.Debug("write failed", zap.Error(err))
			broken = true
			_ = conn.Close()
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f ServerFrame) error {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return conn.WriteJSON(f)
}
