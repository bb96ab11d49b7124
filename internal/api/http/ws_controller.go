package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"golang.org/x/time/rate"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/config"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/protocol"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/service"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/sl"
)

type SocketController struct {
	matches    service.MatchInteractor
	relay      service.RelayInteractor
	iceServers []webrtc.ICEServer
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

func NewSocketController(
	matches service.MatchInteractor,
	relay service.RelayInteractor,
	iceServers []webrtc.ICEServer,
	cfg config.WebSocketConfig,
	allowOrigins []string,
	log *slog.Logger,
) *SocketController {
	if log == nil {
		log = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 64 << 10
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}

	return &SocketController{
		matches:    matches,
		relay:      relay,
		iceServers: iceServers,
		cfg:        cfg,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowOrigins, "*") || slices.Contains(allowOrigins, origin)
			},
		},
	}
}

// Connect upgrades the request, registers an anonymous client and serves the envelope protocol
// until either side goes away.
func (c *SocketController) Connect(ctx *gin.Context) {
	const op = "api.ws.connect"

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Info("upgrade failed", slog.String("op", op), sl.Err(err))
		return
	}

	client, err := c.matches.Connect(context.Background(), "", domain.TransportWebSocket)
	if err != nil {
		_ = conn.WriteJSON(errorEvent("", err))
		conn.Close()
		return
	}
	log := c.log.With("op", op, "peer_id", client.ID)

	sock := &socket{conn: conn, writeTimeout: c.cfg.WriteTimeout}
	if err := sock.send(domain.NewEvent(domain.KindWelcome, "", domain.WelcomePayload{
		PeerID:     client.ID,
		ICEServers: c.iceServers,
	})); err != nil {
		_ = c.matches.Disconnect(context.Background(), client.ID)
		conn.Close()
		return
	}

	go sock.forwardEvents(client.Events, c.cfg.PongWait*9/10)

	c.serve(ctx.Request.Context(), sock, client.ID, log)

	if err := c.matches.Disconnect(context.Background(), client.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Info("disconnect failed", sl.Err(err))
	}
	conn.Close()
	log.Info("socket closed")
}

func (c *SocketController) serve(ctx context.Context, sock *socket, peerID string, log *slog.Logger) {
	conn := sock.conn
	conn.SetReadLimit(c.cfg.MaxMessageBytes)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	limiter := rate.NewLimiter(rate.Limit(c.cfg.MessagesPerSecond), c.cfg.Burst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("socket read failed", sl.Err(err))
			}
			return
		}
		_ = extend()

		if !limiter.Allow() {
			_ = sock.send(domain.NewEvent(domain.KindError, "", domain.ErrorPayload{
				Code:    "rate_limited",
				Message: "too many messages",
			}))
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			_ = sock.send(errorEvent("", err))
			continue
		}

		reply, err := c.handle(ctx, peerID, msg)
		if err != nil {
			log.Debug("message rejected", slog.String("type", string(msg.Type)), sl.Err(err))
			reply = ptr(errorEvent(msg.SessionID, err))
		}
		if reply == nil {
			continue
		}
		if err := sock.send(*reply); err != nil {
			return
		}
	}
}

// handle runs one decoded client message. Replies go straight back to the sender;
// everything addressed to the partner travels through the partner's mailbox.
func (c *SocketController) handle(ctx context.Context, peerID string, msg *domain.SignalMessage) (*domain.SignalMessage, error) {
	switch msg.Type {
	case domain.KindEnqueue:
		criteria, err := protocol.DecodeEnqueue(msg.Payload)
		if err != nil {
			return nil, err
		}
		res, err := c.matches.Enqueue(ctx, peerID, criteria)
		if err != nil {
			return nil, err
		}
		return ptr(resultEvent(res)), nil
	case domain.KindPoll:
		res, err := c.matches.PollMatch(ctx, peerID)
		if err != nil {
			return nil, err
		}
		return ptr(resultEvent(res)), nil
	case domain.KindCancel:
		if err := c.matches.Cancel(ctx, peerID); err != nil {
			return nil, err
		}
		return ptr(resultEvent(domain.MatchResult{Status: domain.StatusIdle})), nil
	case domain.KindEnd:
		if err := c.matches.EndSession(ctx, msg.SessionID, peerID); err != nil {
			return nil, err
		}
		return ptr(resultEvent(domain.MatchResult{Status: domain.StatusIdle})), nil
	case domain.KindStats:
		stats, err := c.matches.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return ptr(domain.NewEvent(domain.KindStats, "", stats)), nil
	case domain.KindPing:
		return ptr(domain.NewEvent(domain.KindPong, "", nil)), nil
	}

	if msg.Type.IsRelayed() {
		return nil, c.relay.Relay(ctx, peerID, *msg)
	}
	return nil, domain.Invalid("type", "unsupported")
}

func resultEvent(res domain.MatchResult) domain.SignalMessage {
	switch res.Status {
	case domain.StatusMatched:
		return domain.NewEvent(domain.KindMatched, res.SessionID, res)
	case domain.StatusIdle:
		return domain.NewEvent(domain.KindIdle, "", res)
	default:
		return domain.NewEvent(domain.KindWaiting, "", res)
	}
}

func errorEvent(sessionID string, err error) domain.SignalMessage {
	return domain.NewEvent(domain.KindError, sessionID, domain.ErrorPayload{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
}

func ptr[T any](v T) *T {
	return &v
}

// socket serializes writes; gorilla connections allow one concurrent writer.
type socket struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

func (s *socket) send(msg domain.SignalMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *socket) control(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(messageType, data, time.Now().Add(s.writeTimeout))
}

// forwardEvents pumps the client's mailbox to the socket and keeps it alive with pings.
// A closed mailbox means the client was disconnected elsewhere, so the socket is closed too.
func (s *socket) forwardEvents(events <-chan domain.SignalMessage, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				_ = s.control(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "disconnected"))
				s.conn.Close()
				return
			}
			if err := s.send(event); err != nil {
				s.conn.Close()
				return
			}
		case <-ticker.C:
			if err := s.control(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}
