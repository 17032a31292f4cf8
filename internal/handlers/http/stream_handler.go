package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/internal/core/services"
	"geolatency/internal/infrastructure/refresh"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subscriber starts refresh subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, publish func(*domain.Snapshot)) *refresh.Subscription
}

type StreamConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// StreamMessage is the envelope of every websocket frame.
type StreamMessage struct {
	Type           string                 `json:"type"`
	SubscriptionID string                 `json:"subscription_id,omitempty"`
	GeneratedAt    time.Time              `json:"generatedAt"`
	Edges          []domain.Edge          `json:"edges"`
	Nodes          []domain.NodeAggregate `json:"nodes"`
	Polygons       []domain.Polygon       `json:"polygons"`
	Dropped        int                    `json:"dropped"`
}

// StreamHandler serves live snapshots over websocket. Each connection owns one refresh
// subscription that is cancelled when the connection ends.
type StreamHandler struct {
	scheduler Subscriber
	layers    RegionSource
	config    StreamConfig
	upgrader  websocket.Upgrader
	logger    *zap.SugaredLogger
}

var _ ports.StreamHandler = (*StreamHandler)(nil)

func NewStreamHandler(scheduler Subscriber, layers RegionSource, cfg StreamConfig, logger *zap.SugaredLogger) *StreamHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	h := &StreamHandler{
		scheduler: scheduler,
		layers:    layers,
		config:    cfg,
		logger:    logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *StreamHandler) SetupRoutes(router *gin.Engine, middlewares ...gin.HandlerFunc) {
	handlers := append(middlewares, h.HandleStream)
	router.GET("/api/v1/stream", handlers...)
}

// checkOrigin allows requests without an Origin header, "*" and exact host matches.
func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (h *StreamHandler) HandleStream(c *gin.Context) {
	filter, err := ParseViewFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Holds at most the newest undelivered snapshot so a slow client never blocks the
	// refresh loop.
	updates := make(chan *domain.Snapshot, 1)
	sub := h.scheduler.Subscribe(ctx, func(s *domain.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer sub.Cancel()

	h.logger.Infow("stream client connected",
		"subscription_id", sub.ID(),
		"remote_addr", c.ClientIP(),
	)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	pingTicker := time.NewTicker(h.config.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case snapshot := <-updates:
			msg := h.message(sub.ID(), snapshot, filter)
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Infow("error writing snapshot", "subscription_id", sub.ID(), "error", err)
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Infow("error sending ping", "subscription_id", sub.ID(), "error", err)
				return
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Infow("stream client read error", "subscription_id", sub.ID(), "error", err)
			}
			h.logger.Infow("stream client disconnected", "subscription_id", sub.ID())
			return

		case <-sub.Done():
			h.logger.Infow("stream subscription ended", "subscription_id", sub.ID(), "reason", sub.Err())
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(h.config.WriteTimeout))
			return
		}
	}
}

func (h *StreamHandler) message(subscriptionID string, snapshot *domain.Snapshot, filter domain.ViewFilter) StreamMessage {
	view := services.ApplyView(snapshot, h.layers.Regions(), filter)
	return StreamMessage{
		Type:           "snapshot",
		SubscriptionID: subscriptionID,
		GeneratedAt:    snapshot.GeneratedAt,
		Edges:          view.Edges,
		Nodes:          view.Nodes,
		Polygons:       view.Polygons,
		Dropped:        snapshot.Dropped,
	}
}
