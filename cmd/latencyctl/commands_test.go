package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/services"
	"geolatency/internal/infrastructure/distributed"
	"geolatency/pkg/config"

	"github.com/alecthomas/kong"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a config path that does not exist, so defaults apply.
func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cli := CLI{Globals: Globals{out: &out}}
	parser, err := kong.New(&cli, kong.Name("latencyctl"))
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	ctx, err := parser.Parse(append([]string{"--config", missing}, args...))
	require.NoError(t, err)
	require.NoError(t, ctx.Run(&cli.Globals))
	return out.String()
}

func TestTokenCmd(t *testing.T) {
	out := run(t, "token", "--probe", "probe-tokyo", "--ttl", "1h")
	assert.Contains(t, out, "probe:   probe-tokyo")

	var token string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "token:") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "token:"))
		}
	}
	require.NotEmpty(t, token)

	claims, err := services.NewProbeAuthService(config.DefaultConfig().Auth.JWTSecret, time.Hour).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "probe-tokyo", claims.ProbeID)
}

func TestHistoryCmd(t *testing.T) {
	var history domain.History
	require.NoError(t, json.Unmarshal([]byte(run(t, "history", "--pair", "Kraken-Gemini", "--range", "7d", "--json")), &history))
	assert.Equal(t, domain.NodeName("Kraken"), history.From)
	assert.Len(t, history.Points, 168)

	out := run(t, "history")
	assert.True(t, strings.HasPrefix(out, "Binance-OKX  range=1h  points=60"))
	assert.Contains(t, out, "TIME")
}

func TestSnapshotCmd_Local(t *testing.T) {
	var snapshot domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(run(t, "snapshot", "--local")), &snapshot))
	assert.Len(t, snapshot.Edges, 55)
	assert.Len(t, snapshot.NodeAggregates, 11)

	fc, err := geojson.UnmarshalFeatureCollection([]byte(run(t, "snapshot", "--local", "--geojson")))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 22)
}

func TestSnapshotCmd_Server(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/snapshot/geojson" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	out := run(t, "snapshot", "--server", srv.URL, "--geojson")
	assert.Contains(t, out, `"FeatureCollection"`)
}

func TestPrintEvent(t *testing.T) {
	payload, err := json.Marshal(distributed.SnapshotSummary{Edges: 3, Nodes: 11, AvgLatency: 80})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printEvent(&out, &distributed.Event{
		Type:       distributed.EventSnapshotPublished,
		InstanceID: "0123456789abcdef",
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Payload:    payload,
	}))
	assert.Equal(t, "2024-01-02T03:04:05Z  snapshot  instance=01234567  edges=3  nodes=11  dropped=0  avg=80.0ms\n", out.String())
}

func TestPushCmd(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Samples []domain.LatencySample `json:"samples"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"probe_id":"probe-1","accepted":2}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "samples.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"from":"Binance","to":"OKX","latency":12},
		{"from":"Kraken","to":"Gemini","latency":30}
	]`), 0o600))

	out := run(t, "push", "--server", srv.URL, "--token", "abc", "--file", file)
	assert.Equal(t, "accepted 2 samples from probe-1\n", out)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Len(t, gotBody.Samples, 2)
}

func TestReadSamples(t *testing.T) {
	samples, err := readSamples(strings.NewReader(`{"samples":[{"from":"A","to":"B","latency":5}]}`))
	require.NoError(t, err)
	assert.Equal(t, []domain.LatencySample{{From: "A", To: "B", LatencyMs: 5}}, samples)

	_, err = readSamples(strings.NewReader(`[]`))
	assert.Error(t, err)

	_, err = readSamples(strings.NewReader(`{`))
	assert.Error(t, err)
}
