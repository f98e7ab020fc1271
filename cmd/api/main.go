package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"backend-esterun/internal/config"
	"backend-esterun/internal/db"
	"backend-esterun/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	migrate         func(context.Context, db.Querier) error
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		migrate:         db.Migrate,
		notify:          signal.Notify,
		run:             Run,
	}
}

// realMain keeps serving without Postgres; the tracking API works in memory
// and database routes answer 503 until the next restart.
func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	ctx := context.Background()

	pg, err := deps.connectPostgres(cfg)
	switch {
	case err != nil:
		log.Printf("postgres unavailable, running without persistence: %v", err)
	case pg != nil:
		if err := deps.migrate(ctx, pg); err != nil {
			log.Printf("schema migration failed: %v", err)
		}
	}

	rdb := deps.connectRedis(cfg)
	if rdb == nil {
		log.Printf("redis not configured, live stream is local to this instance")
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run serves the API until a signal arrives, ctx ends or the listener fails,
// then drains HTTP, discards live sessions and closes the connections.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb)
	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	var listenErr error
	select {
	case sig := <-signals:
		log.Printf("received %v, shutting down", sig)
	case <-ctx.Done():
	case listenErr = <-errCh:
	}
	return shutdown(srv, pg, rdb, listenErr)
}

func shutdown(srv *server.Server, pg *pgxpool.Pool, rdb *redis.Client, listenErr error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := listenErr
	if err == nil {
		err = shutdownFn(srv.App, shutdownCtx)
	}
	if cerr := srv.Close(); cerr != nil {
		log.Printf("stream relay close: %v", cerr)
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return err
}
