package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/logrelay/logrelay/client/internal/config"
	"github.com/logrelay/logrelay/client/internal/session"
	"github.com/logrelay/logrelay/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	serverURL := flag.String("server", "", "WebSocket endpoint of logrelay-server (overrides config)")
	room := flag.String("room", "", "room to tail (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *serverURL != "" {
		cfg.Tail.ServerURL = *serverURL
	}
	if *room != "" {
		cfg.Tail.Room = *room
	}
	if cfg.Tail.Room == "" {
		fmt.Fprintln(os.Stderr, "no room given: set -room or tail.room in the config file")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess := session.New(cfg.Tail)

	// Hot-reload the config file. Reconnect settings apply to the live
	// session; a changed server URL or room still needs a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(tc config.TailConfig) {
				sess.SetReconnect(tc.Reconnect)
				slog.Warn("reconnect settings updated",
					"initial_backoff", tc.Reconnect.InitialBackoff,
					"max_backoff", tc.Reconnect.MaxBackoff,
				)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	if err := sess.Connect(ctx, cfg.Tail.Room); err != nil {
		slog.Error("connect failed", "err", err)
		os.Exit(1)
	}
	defer sess.Disconnect()

	fmt.Fprintf(os.Stderr, "tailing room %q on %s\n", cfg.Tail.Room, cfg.Tail.ServerURL)

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-sess.Updates():
			fmt.Fprintf(os.Stderr, "[%s]\n", st)
		case entry := <-sess.Follow():
			printEntry(entry)
		}
	}
}

func printEntry(e types.LogEntry) {
	stream := os.Stdout
	if e.IsError {
		stream = os.Stderr
	}
	fmt.Fprintf(stream, "%s [%s/%s] %s\n",
		e.Timestamp.Format("15:04:05.000"), e.Type, e.Level, e.Message)
}
