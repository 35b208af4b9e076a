package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anhelo/anhelo/internal/config"
	"github.com/anhelo/anhelo/internal/fetch"
	"github.com/anhelo/anhelo/internal/metrics"
	"github.com/anhelo/anhelo/internal/player"
)

var version = "dev"

func main() {
	_ = config.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	playlistURL := config.GetEnv("ANHELO_PLAYLIST_URL", "")
	if len(os.Args) > 1 {
		playlistURL = os.Args[1]
	}
	if playlistURL == "" {
		fmt.Fprintf(os.Stderr, "usage: %s <playlist-url>\n", os.Args[0])
		os.Exit(2)
	}

	apiAddr := config.GetEnv("ANHELO_API_ADDR", ":4446")
	refreshInterval := config.GetEnvDuration("ANHELO_REFRESH_INTERVAL", 500*time.Millisecond)
	frameDuration := config.GetEnvDuration("ANHELO_FRAME_DURATION", player.DefaultFrameDuration)
	skipAmount := config.GetEnvInt("ANHELO_SKIP_AMOUNT", 3)
	useHTTP3 := config.GetEnvBool("ANHELO_HTTP3", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fetchOpts := []fetch.Option{}
	if useHTTP3 {
		fetchOpts = append(fetchOpts, fetch.WithHTTP3())
	}

	m := metrics.New()

	session, err := player.NewSession(player.Config{
		PlaylistURL:     playlistURL,
		Fetcher:         fetch.New(nil, fetchOpts...),
		FrameDuration:   frameDuration,
		SkipAmount:      skipAmount,
		RefreshInterval: refreshInterval,
		Metrics:         m,
		CaptionSink: func(channel int, text string) {
			slog.Info("caption", "channel", channel, "text", text)
		},
	})
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	slog.Info("anhelo starting",
		"version", version,
		"playlist", playlistURL,
		"api", apiAddr,
		"skip_amount", skipAmount,
	)

	apiSrv := &http.Server{
		Addr:    apiAddr,
		Handler: player.NewDebugHandler(session, m),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := session.Run(ctx)
		// Playback finishing ends the whole process, cleanly or not.
		cancel()
		return err
	})

	g.Go(func() error {
		slog.Info("debug API listening", "addr", apiAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return apiSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	stats := session.Snapshot()
	slog.Info("session summary",
		"segments", stats.SegmentsConsumed,
		"displayed", stats.FramesDisplayed,
		"dropped", stats.FramesDropped,
		"drop_rate", fmt.Sprintf("%.2f", stats.DropRate()),
	)

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("playback error", "error", err)
		os.Exit(1)
	}
}
