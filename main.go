package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/pollbox/audit"
	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/cliparse"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/models"
	"github.com/danielhkuo/pollbox/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := cliparse.LoadEnv(); err != nil {
		logger.Debug("no .env file loaded, using environment variables", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		logger.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	if err != nil {
		logger.Error("invalid database type", "error", err)
		os.Exit(1)
	}

	dbConn, err := sql.Open(dialect.DriverName(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// One writer at a time; the vote transaction relies on it
	if dialect == db.DialectSQLite {
		dbConn.SetMaxOpenConns(1)
	}

	if err := dbConn.Ping(); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	if err := db.CreateSchema(dbConn, dialect); err != nil {
		logger.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Database schema ready", "dialect", string(dialect))

	store := db.NewSQLStore(dbConn, dialect)

	if err := bootstrapAdmin(context.Background(), store, cfg, logger); err != nil {
		logger.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	bus := audit.NewBus(logger, audit.NewSlogSink(logger))
	if cfg.AuditRedisURL != "" {
		opts, err := redis.ParseURL(cfg.AuditRedisURL)
		if err != nil {
			logger.Error("invalid audit redis URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Error("audit redis ping failed", "error", err)
			os.Exit(1)
		}
		bus.Add(audit.NewRedisSink(rdb, cfg.AuditRedisKey, audit.DefaultRedisMaxLen))
		logger.Info("Audit events mirrored to redis", "key", cfg.AuditRedisKey)
	}

	server := http.Server{
		Handler:           middleware.CORS(cfg.CORSOrigins, router.NewRouter(store, cfg, bus, logger)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	logger.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server closed", "error", err)
	} else {
		logger.Info("Server closed")
	}
}

// bootstrapAdmin creates the configured staff account if it is missing
func bootstrapAdmin(ctx context.Context, store db.Store, cfg cliparse.Config, logger *slog.Logger) error {
	if cfg.AdminUsername == "" {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	u := models.User{Username: cfg.AdminUsername, PasswordHash: hash, IsStaff: true}
	err = store.CreateUser(ctx, &u)
	if errors.Is(err, db.ErrConflict) {
		logger.Info("admin account already exists", "username", cfg.AdminUsername)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("admin account created", "username", cfg.AdminUsername, "user_id", u.ID)
	return nil
}
