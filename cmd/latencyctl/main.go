package main

import (
	"io"
	"os"

	"geolatency/pkg/config"
	"geolatency/pkg/logger"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

// Globals are shared by every command.
type Globals struct {
	Config   string `help:"Path to the service configuration file." default:"configs/config.yaml" env:"GEOLATENCY_CONFIG" type:"path"`
	LogLevel string `help:"Log level." default:"warn" enum:"debug,info,warn,error"`

	out io.Writer
}

func (g *Globals) loadConfig() (*config.Config, error) {
	return config.Load(g.Config)
}

func (g *Globals) logger() *zap.SugaredLogger {
	l, err := logger.New(g.LogLevel, "console")
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

type CLI struct {
	Globals

	History  HistoryCmd  `cmd:"" help:"Print a simulated latency history for a node pair."`
	Snapshot SnapshotCmd `cmd:"" help:"Print the latest snapshot from a running server, or aggregate one locally."`
	Token    TokenCmd    `cmd:"" help:"Issue a probe token for POST /api/v1/feed."`
	Push     PushCmd     `cmd:"" help:"Push a batch of latency samples to a running server."`
	Watch    WatchCmd    `cmd:"" help:"Print snapshot events published on the Redis event bus."`
}

func main() {
	cli := CLI{Globals: Globals{out: os.Stdout}}
	ctx := kong.Parse(&cli,
		kong.Name("latencyctl"),
		kong.Description("Inspect and feed a GeoLatency service."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
