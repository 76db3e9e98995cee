package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/feltops/cardroom/internal/ledger"
	"github.com/feltops/cardroom/internal/room"
	"github.com/feltops/cardroom/internal/server"
	"github.com/feltops/cardroom/internal/tournament"
)

// ServerCmd runs the cardroom server.
type ServerCmd struct {
	Config string `short:"c" default:"cardroom.hcl" help:"Path to HCL configuration file"`
	Addr   string `help:"Override the listen address from the configuration"`
	Debug  bool   `short:"d" help:"Enable debug logging"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "cardroom",
	})
	if level, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	led, err := openLedger(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	addr := cfg.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := server.NewServer(addr, logger)

	rooms := room.NewRegistry(led,
		room.WithBroadcaster(srv),
		room.WithLogger(logger),
	)
	srv.SetRooms(rooms)

	tournaments := tournament.NewManager(led,
		tournament.WithNotify(srv.TournamentUpdated),
		tournament.WithLogger(logger),
	)
	srv.SetTournaments(tournaments)

	for _, rc := range cfg.RoomConfigs() {
		if _, err := rooms.Create(rc); err != nil {
			return fmt.Errorf("create room %q: %w", rc.Name, err)
		}
	}
	for _, tc := range cfg.TournamentConfigs() {
		if _, err := tournaments.Create(tc); err != nil {
			return fmt.Errorf("create tournament %q: %w", tc.Name, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tournaments.Close()
		if err := rooms.Close(shutdownCtx); err != nil {
			logger.Error("failed to close rooms", "error", err)
		}
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openLedger(cfg *server.LedgerSettings) (ledger.Ledger, error) {
	switch cfg.Driver {
	case "sqlite":
		return ledger.Open(cfg.Path)
	default:
		return ledger.NewMem(), nil
	}
}
