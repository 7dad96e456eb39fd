package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	_ "where2meet/docs"
	"where2meet/internal/config"
	"where2meet/internal/domain/poll"
	"where2meet/internal/domain/result"
	"where2meet/internal/domain/share"
	"where2meet/internal/domain/vote"
	api "where2meet/internal/http"
	"where2meet/internal/metrics"
	"where2meet/internal/places"
	"where2meet/internal/platform/database"
	jwtpkg "where2meet/internal/platform/jwt"
	"where2meet/internal/repository/memory"
	"where2meet/internal/repository/sqlstore"
	"where2meet/internal/worker"
)

type repositories struct {
	polls  poll.Repository
	votes  vote.Repository
	tokens share.Repository
	db     *sqlx.DB
}

func openStorage(ctx context.Context, cfg config.Config) (repositories, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Storage {
	case config.StorageMemory:
		return repositories{
			polls:  memory.NewPollRepo(),
			votes:  memory.NewVoteRepo(),
			tokens: memory.NewTokenRepo(),
		}, nil
	case config.StorageSQLite:
		db, err = database.NewSQLite(cfg.SQLitePath)
	default:
		db, err = database.NewPostgres(cfg.DB_DSN)
	}
	if err != nil {
		return repositories{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		polls:  sqlstore.NewPollRepo(db),
		votes:  sqlstore.NewVoteRepo(db),
		tokens: sqlstore.NewTokenRepo(db),
		db:     db,
	}, nil
}

// @title                       where2meet API
// @version                     1.0
// @description                 Group meeting-point polls: votes, consensus point and place recommendations
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage error", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	var pinger api.Pinger
	if repos.db != nil {
		defer repos.db.Close()
		pinger = repos.db
	}

	pollSvc := poll.NewService(repos.polls, logger)
	voteSvc := vote.NewService(repos.votes, pollSvc, logger)
	shareMgr := share.NewManager(repos.tokens, pollSvc, share.Options{
		Secret:     cfg.ShareTokenSecret,
		DefaultTTL: cfg.ShareTokenTTL,
		MaxTTL:     cfg.ShareTokenMaxTTL,
	}, logger)
	pollSvc.OnDelete(voteSvc, shareMgr)

	placesClient := places.NewDGISClient(cfg.PlacesAPIURL, cfg.PlacesAPIKey, nil, logger)
	engine := result.NewEngine(voteSvc, pollSvc, shareMgr, placesClient, result.Options{
		PlacesTimeout: cfg.PlacesTimeout,
		CacheTTL:      cfg.RecommendationCacheTTL,
	}, logger)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, engine, logger)

	router := api.NewRouter(api.Deps{
		PollSvc:  pollSvc,
		VoteSvc:  voteSvc,
		Engine:   engine,
		ShareMgr: shareMgr,
		JWTMgr:   jwtMgr,
		VoteCh:   voteCh,
		DB:       pinger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go statsWorker.Run(ctx)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return
	}

	logger.Info("server stopped")
}
