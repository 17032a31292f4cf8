package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/internal/core/services"
	"geolatency/internal/infrastructure/middleware"
	"geolatency/internal/infrastructure/registry"
	"geolatency/pkg/cache"
	apperrors "geolatency/pkg/errors"
	"geolatency/pkg/tracing"
	"geolatency/pkg/validation"

	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
)

const (
	regionsCacheKey = "regions"
	maxPairLength   = 129
)

// RegionSource provides the static provider coverage overlay.
type RegionSource interface {
	Regions() []domain.Polygon
}

// BatchPusher accepts batches pushed by probes.
type BatchPusher interface {
	Push(probeID string, samples []domain.LatencySample) error
}

// PushNotifier is told about accepted batches, e.g. to inform other instances.
type PushNotifier interface {
	PublishFeedPush(ctx context.Context, probeID string, samples int) error
}

// RequestRecorder receives API-level observations.
type RequestRecorder interface {
	RecordHistoryQuery(rng domain.HistoryRange)
	RecordFeedPush(accepted bool)
}

type LatencyHandler struct {
	registry  ports.NodeRegistry
	feed      ports.LatencyFeed
	snapshots ports.SnapshotRepository
	layers    RegionSource
	history   ports.HistoryService
	pairs     []string

	pusher   BatchPusher
	notifier PushNotifier
	recorder RequestRecorder

	regionsCache *cache.Cache[*geojson.FeatureCollection]
	logger       *zap.SugaredLogger
}

var _ ports.HTTPHandler = (*LatencyHandler)(nil)

func NewLatencyHandler(
	registry ports.NodeRegistry,
	feed ports.LatencyFeed,
	snapshots ports.SnapshotRepository,
	layers RegionSource,
	history ports.HistoryService,
	pairs []string,
	logger *zap.SugaredLogger,
) *LatencyHandler {
	if len(pairs) == 0 {
		pairs = services.DefaultPairs
	}
	return &LatencyHandler{
		registry:     registry,
		feed:         feed,
		snapshots:    snapshots,
		layers:       layers,
		history:      history,
		pairs:        pairs,
		regionsCache: cache.New[*geojson.FeatureCollection](time.Hour, 10*time.Minute),
		logger:       logger,
	}
}

// WithPush enables POST /feed. notifier may be nil.
func (h *LatencyHandler) WithPush(pusher BatchPusher, notifier PushNotifier) *LatencyHandler {
	h.pusher = pusher
	h.notifier = notifier
	return h
}

func (h *LatencyHandler) WithRecorder(recorder RequestRecorder) *LatencyHandler {
	h.recorder = recorder
	return h
}

// Close stops the regions cache janitor.
func (h *LatencyHandler) Close() {
	h.regionsCache.Stop()
}

func (h *LatencyHandler) SetupRoutes(router *gin.Engine, probeAuth gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		api.GET("/nodes", h.ListNodes)
		api.GET("/pairs", h.ListPairs)
		api.GET("/latency", h.GetLatency)
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/snapshot/geojson", h.GetSnapshotGeoJSON)
		api.GET("/regions", h.GetRegions)
		api.GET("/history", h.GetHistory)
		api.POST("/feed", probeAuth, h.PushFeed)
	}
}

type nodeResponse struct {
	domain.Node
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

func (h *LatencyHandler) ListNodes(c *gin.Context) {
	nodes := h.registry.All()
	out := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeResponse{
			Node:        n,
			DisplayName: registry.DisplayName(n),
			Color:       n.Provider.Color(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": out,
		"count": len(out),
	})
}

func (h *LatencyHandler) ListPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pairs":   h.pairs,
		"default": string(services.DefaultPairFrom) + "-" + string(services.DefaultPairTo),
	})
}

// GetLatency returns one raw batch straight from the feed.
func (h *LatencyHandler) GetLatency(c *gin.Context) {
	samples, err := h.feed.Fetch(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrFeedUnavailable) || errors.Is(err, domain.ErrFeedEmpty) {
			_ = c.Error(err)
			return
		}
		_ = c.Error(apperrors.NewBadGatewayError("failed to fetch latency batch", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"samples": samples,
		"count":   len(samples),
	})
}

func (h *LatencyHandler) GetSnapshot(c *gin.Context) {
	filter, err := ParseViewFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	snapshot, err := h.snapshots.Latest(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	view := services.ApplyView(snapshot, h.layers.Regions(), filter)
	c.JSON(http.StatusOK, gin.H{
		"generatedAt": snapshot.GeneratedAt,
		"edges":       view.Edges,
		"nodes":       view.Nodes,
		"polygons":    view.Polygons,
		"dropped":     snapshot.Dropped,
	})
}

// GetSnapshotGeoJSON exports the visible polygons of the latest snapshot.
func (h *LatencyHandler) GetSnapshotGeoJSON(c *gin.Context) {
	filter, err := ParseViewFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	snapshot, err := h.snapshots.Latest(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	view := services.ApplyView(snapshot, h.layers.Regions(), filter)
	c.JSON(http.StatusOK, services.FeatureCollection(view.Polygons))
}

func (h *LatencyHandler) GetRegions(c *gin.Context) {
	fc, err := h.regionsCache.GetOrLoad(c.Request.Context(), regionsCacheKey,
		func(context.Context) (*geojson.FeatureCollection, error) {
			return services.FeatureCollection(h.layers.Regions()), nil
		})
	if err != nil {
		_ = c.Error(apperrors.NewInternalError("failed to build regions"))
		return
	}
	c.JSON(http.StatusOK, fc)
}

// GetHistory never fails on bad input: malformed pairs and ranges fall back to defaults.
func (h *LatencyHandler) GetHistory(c *gin.Context) {
	pair := c.Query("pair")
	if len(pair) > maxPairLength { // longer than two names joined by "-"
		pair = ""
	}

	ctx, span := tracing.TraceHistoryQuery(c.Request.Context(), pair, c.Query("range"))
	defer span.End()

	history := h.history.Query(ctx, pair, c.Query("range"))
	if h.recorder != nil {
		h.recorder.RecordHistoryQuery(history.Range)
	}
	c.JSON(http.StatusOK, history)
}

type pushRequest struct {
	Samples []domain.LatencySample `json:"samples"`
}

func (h *LatencyHandler) PushFeed(c *gin.Context) {
	if h.pusher == nil {
		_ = c.Error(apperrors.NewServiceUnavailableError("push feed is not enabled"))
		return
	}

	probeID := middleware.ProbeID(c)
	if err := validation.ValidateProbeID(probeID); err != nil {
		_ = c.Error(apperrors.NewUnauthorizedError("token does not name a valid probe"))
		return
	}

	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordPush(false)
		_ = c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := h.pusher.Push(probeID, req.Samples); err != nil {
		h.recordPush(false)
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()).WithContext("probe_id", probeID))
		return
	}
	h.recordPush(true)

	h.logger.Debugw("feed batch accepted",
		"probe_id", probeID,
		"samples", len(req.Samples),
	)

	if h.notifier != nil {
		if err := h.notifier.PublishFeedPush(c.Request.Context(), probeID, len(req.Samples)); err != nil {
			h.logger.Warnw("failed to publish feed push event",
				"probe_id", probeID,
				"error", err,
			)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{
		"probe_id": probeID,
		"accepted": len(req.Samples),
	})
}

func (h *LatencyHandler) recordPush(accepted bool) {
	if h.recorder != nil {
		h.recorder.RecordFeedPush(accepted)
	}
}

// ParseViewFilter reads the providers, regions and pair query parameters. Without
// parameters everything is shown.
func ParseViewFilter(c *gin.Context) (domain.ViewFilter, error) {
	filter := domain.DefaultViewFilter()

	if raw, ok := c.GetQuery("providers"); ok {
		for p := range filter.Providers {
			filter.Providers[p] = false
		}
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			p, err := domain.ParseProvider(name)
			if err != nil {
				return filter, apperrors.NewInvalidInputError(err.Error())
			}
			filter.Providers[p] = true
		}
	}

	if raw, ok := c.GetQuery("regions"); ok {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewInvalidInputError("regions must be a boolean")
		}
		filter.ShowRegions = show
	}

	filter.HighlightedPair = c.Query("pair")
	if len(filter.HighlightedPair) > maxPairLength {
		return filter, apperrors.NewInvalidInputError("pair is too long")
	}
	return filter, nil
}
