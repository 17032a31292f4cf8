package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/services"
	"geolatency/internal/infrastructure/distributed"
	"geolatency/internal/infrastructure/feed"
	"geolatency/internal/infrastructure/registry"
	redisrepo "geolatency/internal/infrastructure/repositories/redis"
	"geolatency/pkg/utils"
	"geolatency/pkg/validation"
)

type HistoryCmd struct {
	Pair  string `help:"Node pair as A-B." default:"Binance-OKX"`
	Range string `help:"Time range." default:"1h" enum:"1h,24h,7d,30d"`
	JSON  bool   `help:"Print the full history as JSON."`
}

func (c *HistoryCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	history := services.NewHistoryService(services.NewSimulatorService(nil), cfg.History.MaxPoints, g.logger()).
		Query(context.Background(), c.Pair, c.Range)

	if c.JSON {
		return writeJSON(g.out, history)
	}

	fmt.Fprintf(g.out, "%s  range=%s  points=%d  min=%dms  max=%dms  avg=%.1fms\n",
		history.Pair(), history.Range, len(history.Points),
		history.Stats.Min, history.Stats.Max, history.Stats.Avg)

	w := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLATENCY")
	for _, p := range history.Points {
		fmt.Fprintf(w, "%s\t%dms\n", utils.FormatUnixMilli(p.TimestampMs), p.LatencyMs)
	}
	return w.Flush()
}

type SnapshotCmd struct {
	Server  string        `help:"Base URL of a running server." default:"http://localhost:8080"`
	Local   bool          `help:"Aggregate one simulated batch locally instead of asking a server."`
	GeoJSON bool          `name:"geojson" help:"Print heat and region polygons as a GeoJSON FeatureCollection."`
	Timeout time.Duration `help:"Request timeout." default:"5s"`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	if c.Local {
		return c.runLocal(g)
	}

	if err := validation.ValidateURL(c.Server); err != nil {
		return err
	}
	path := "/api/v1/snapshot"
	if c.GeoJSON {
		path = "/api/v1/snapshot/geojson"
	}
	endpoint, err := url.JoinPath(c.Server, path)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	client := &http.Client{Timeout: c.Timeout}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return writeJSON(g.out, pretty)
}

func (c *SnapshotCmd) runLocal(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	reg, err := registry.LoadFile(cfg.Registry.Path)
	if err != nil {
		return err
	}

	src, err := feed.NewSimulatedFeed(reg, services.NewSimulatorService(nil), cfg.Feed.Pairs)
	if err != nil {
		return err
	}
	samples, err := src.Fetch(context.Background())
	if err != nil {
		return err
	}

	snapshot := services.NewAggregationService(reg, services.AggregationConfig{
		HeatRadiusKm: cfg.Layers.HeatRadiusKm,
		HeatSegments: cfg.Layers.HeatSegments,
	}, g.logger()).Aggregate(samples)

	if !c.GeoJSON {
		return writeJSON(g.out, snapshot)
	}

	layers := services.NewLayerService(reg, cfg.Layers.RegionRadiusKm, cfg.Layers.RegionSegments)
	polygons := make([]domain.Polygon, 0, reg.Len()*2)
	polygons = append(polygons, layers.Regions()...)
	polygons = append(polygons, snapshot.HeatPolygons...)
	return writeJSON(g.out, services.FeatureCollection(polygons))
}

type TokenCmd struct {
	Probe string        `help:"Probe ID. Generated when empty."`
	TTL   time.Duration `help:"Token lifetime. Defaults to auth.probe_token_ttl."`
}

func (c *TokenCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	probeID := c.Probe
	if probeID == "" {
		probeID = utils.NewProbeID()
	}
	if err := validation.ValidateProbeID(probeID); err != nil {
		return err
	}

	ttl := cfg.Auth.ProbeTokenTTL
	if c.TTL > 0 {
		ttl = c.TTL
	}

	token, err := services.NewProbeAuthService(cfg.Auth.JWTSecret, ttl).GenerateToken(probeID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Fprintf(g.out, "probe:   %s\nexpires: %s\ntoken:   %s\n", probeID, utils.FormatAge(ttl), token)
	return nil
}

type PushCmd struct {
	Server  string        `help:"Base URL of a running server." default:"http://localhost:8080"`
	Token   string        `help:"Probe token issued by the token command." env:"GEOLATENCY_PROBE_TOKEN" required:""`
	File    string        `help:"JSON file with a sample array or an object with a samples field, - for stdin." default:"-"`
	Timeout time.Duration `help:"Request timeout." default:"10s"`
}

func (c *PushCmd) Run(g *Globals) error {
	if err := validation.ValidateURL(c.Server); err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open samples: %w", err)
		}
		defer f.Close()
		in = f
	}

	samples, err := readSamples(in)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{"samples": samples})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint, err := url.JoinPath(c.Server, "/api/v1/feed")
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := (&http.Client{Timeout: c.Timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to push samples: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		ProbeID  string `json:"probe_id"`
		Accepted int    `json:"accepted"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	fmt.Fprintf(g.out, "accepted %d samples from %s\n", result.Accepted, result.ProbeID)
	return nil
}

// readSamples accepts a bare array or an object with a samples field.
func readSamples(r io.Reader) ([]domain.LatencySample, error) {
	data, err := io.ReadAll(io.LimitReader(r, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	data = bytes.TrimSpace(data)

	var samples []domain.LatencySample
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &samples)
	} else {
		var wrapped struct {
			Samples []domain.LatencySample `json:"samples"`
		}
		err = json.Unmarshal(data, &wrapped)
		samples = wrapped.Samples
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	if err := validation.ValidateBatchSize(len(samples)); err != nil {
		return nil, err
	}
	return samples, nil
}

type WatchCmd struct {
	Redis   string `help:"Redis address. Defaults to redis.address."`
	Channel string `help:"Event channel. Defaults to redis.event_channel."`
}

func (c *WatchCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	channel := cfg.Redis.EventChannel
	if c.Channel != "" {
		channel = c.Channel
	}

	log := g.logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := redisrepo.OptionsFromConfig(cfg, c.Redis)
	opts.PoolSize = 2
	client, err := redisrepo.Connect(ctx, opts, log)
	if err != nil {
		return err
	}
	defer redisrepo.Close(client)

	bus := distributed.NewEventBus(client, channel, log)
	defer bus.Close()

	fmt.Fprintf(g.out, "watching %s on %s\n", channel, opts.Address)
	err = bus.Subscribe(ctx, true, func(e *distributed.Event) error {
		return printEvent(g.out, e)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printEvent(out io.Writer, e *distributed.Event) error {
	switch e.Type {
	case distributed.EventSnapshotPublished:
		var s distributed.SnapshotSummary
		if err := json.Unmarshal(e.Payload, &s); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%s  snapshot  instance=%s  edges=%d  nodes=%d  dropped=%d  avg=%.1fms\n",
			e.Timestamp.Format(time.RFC3339), shortID(e.InstanceID), s.Edges, s.Nodes, s.Dropped, s.AvgLatency)
		return err
	case distributed.EventFeedPushed:
		var p distributed.FeedPush
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%s  push      instance=%s  probe=%s  samples=%d\n",
			e.Timestamp.Format(time.RFC3339), shortID(e.InstanceID), p.ProbeID, p.Samples)
		return err
	default:
		_, err := fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Format(time.RFC3339), e.Type)
		return err
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
