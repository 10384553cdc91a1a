package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/feed"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/scanner"
	"github.com/alanyoungcy/arbot/internal/server"
	"github.com/alanyoungcy/arbot/internal/server/handler"
	"github.com/alanyoungcy/arbot/internal/server/ws"
	"github.com/alanyoungcy/arbot/internal/sizing"
)

// core bundles the pipeline components a mode runs. The loop doubles as the
// pause controller for the HTTP control endpoints, the gate and executor as
// the status reporters.
type core struct {
	loop *TradingLoop
	gate *risk.Gate
	exec *executor.AtomicExecutor
	feed *feed.BookFeed
}

// buildCore assembles the scan/size/approve/execute pipeline. Every mode
// shares this construction so the API reports against the same components
// that trade.
func (a *App) buildCore(deps *Dependencies, simulated, execute bool) *core {
	eval := scanner.NewEvaluator(a.cfg.Scanner, a.cfg.Profit, a.cfg.Capital)
	sc := scanner.NewMarketScanner(deps.Venue, deps.Books, eval, a.cfg.Scanner, a.logger).
		WithMarketCache(deps.Markets)
	gate := risk.NewGate(a.cfg.Risk, a.cfg.Capital, a.logger)
	exec := executor.NewAtomicExecutor(deps.Venue, a.cfg.Execution, a.cfg.Profit, a.logger)

	var bookFeed *feed.BookFeed
	if a.cfg.Venue.WsHost != "" {
		bookFeed = feed.NewBookFeed(a.cfg.Venue.WsHost, deps.Books, a.logger)
	}

	loop := NewTradingLoop(a.cfg, LoopDeps{
		Scanner:  sc,
		Sizer:    sizing.NewPositionSizer(a.cfg.Capital, a.cfg.Profit),
		Gate:     gate,
		Executor: exec,
		Venue:    deps.Venue,
		Trades:   deps.TradeStore,
		Opps:     deps.OppStore,
		Bus:      deps.Bus,
		Locks:    deps.Locks,
		Notifier: deps.Notifier,
		Feed:     bookFeed,
	}, simulated, execute, a.logger)

	return &core{loop: loop, gate: gate, exec: exec, feed: bookFeed}
}

// TradingMode runs the full pipeline: book feed, trading loop, archival, and
// the HTTP API. simulated selects paper fills over signed venue orders.
func (a *App) TradingMode(ctx context.Context, deps *Dependencies, simulated bool) error {
	a.logger.InfoContext(ctx, "starting trading mode", slog.Bool("simulated", simulated))

	g, ctx := errgroup.WithContext(ctx)
	c := a.buildCore(deps, simulated, true)

	if c.feed != nil {
		g.Go(func() error {
			defer c.feed.Close()
			return c.feed.Run(ctx)
		})
	}
	g.Go(func() error {
		return c.loop.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return startArchiver(ctx, deps.Archiver, a.cfg.S3, a.logger)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, c)
	}

	return g.Wait()
}

// MonitorMode scans, records, and notifies without ever placing orders. It
// runs without Postgres so it is safe against production infrastructure.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	c := a.buildCore(deps, false, false)

	if c.feed != nil {
		g.Go(func() error {
			defer c.feed.Close()
			return c.feed.Run(ctx)
		})
	}
	g.Go(func() error {
		return c.loop.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, c)
	}

	return g.Wait()
}

// ServerMode serves the HTTP and WebSocket API over existing records without
// scanning or trading. Archival still runs so retention is enforced even when
// no trading process is up.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	c := a.buildCore(deps, false, false)

	if deps.Archiver != nil {
		g.Go(func() error {
			return startArchiver(ctx, deps.Archiver, a.cfg.S3, a.logger)
		})
	}

	a.startHTTPServer(ctx, g, deps, c)

	return g.Wait()
}

// startHTTPServer adds the WebSocket hub and HTTP server goroutines to the
// errgroup. The server shuts down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	hub := ws.NewHub(deps.Bus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC(), c.gate, c.exec, c.loop),
		Opportunities: handler.NewOpportunityHandler(deps.OppStore, a.logger),
		Trades:        handler.NewTradeHandler(deps.TradeStore, a.logger),
		Control:       handler.NewControlHandler(c.loop, a.logger),
	}

	var limiter domain.RateLimiter
	if a.cfg.Server.RateLimit > 0 {
		limiter = deps.Limiter
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, limiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
