package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"shuffle_arena/internal/api"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/app/worker"
	"shuffle_arena/internal/common/security"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"shuffle_arena/internal/platform/config"
	"shuffle_arena/internal/platform/database"
	"shuffle_arena/internal/platform/judge"
	"shuffle_arena/internal/platform/lock"
	"shuffle_arena/internal/platform/logger"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	teams       repository.TeamRepository
	problems    repository.ProblemRepository
	submissions repository.SubmissionRepository
	settings    repository.SettingsRepository
}

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("storage", cfg.StorageDriver).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Storage
	var db *sql.DB
	repos, err := openRepositories(ctx, cfg, &db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer database.Close(db)

	// 3. Initialize Redis (optional, only needed with several instances)
	var rdb *redis.Client
	var locker lock.Locker = lock.NoopLocker{}
	if cfg.RedisAddr != "" {
		rdb, err = lock.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		locker = lock.NewRedisLocker(rdb, cfg.RoundLockKeyBase, cfg.RoundLockTTL)
	}
	defer lock.CloseRedis(rdb)

	// 4. Security
	tokens := security.NewMemberTokens(cfg.JWTKey, cfg.JWTExp)
	adminGate, err := security.NewAdminGate(cfg.AdminSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("ADMIN_SECRET must be set")
	}

	// 5. Initialize Services
	clock := clockwork.NewRealClock()
	settingsCache := service.NewSettingsCache(repos.settings, clock, cfg.SettingsCacheTTL, model.EventSettings{
		RotationIntervalSeconds: cfg.DefaultRotationIntervalSeconds,
		EventDurationSeconds:    cfg.DefaultEventDurationSeconds,
	})
	judgeClient := judge.NewClient(cfg.JudgeBaseURL, cfg.JudgeAPIKey, cfg.JudgeTimeout)

	roundService := service.NewRoundService(service.RoundServiceDeps{
		Teams:               repos.teams,
		Problems:            repos.problems,
		Submissions:         repos.submissions,
		Settings:            settingsCache,
		Gateway:             judgeClient,
		Tokens:              tokens,
		Clock:               clock,
		JudgeTimeout:        cfg.JudgeTimeout,
		JudgeMaxConcurrency: cfg.JudgeMaxConcurrency,
	})
	teamService := service.NewTeamService(repos.teams, clock)
	problemService := service.NewProblemService(repos.problems, repos.teams, clock)
	settingsService := service.NewSettingsService(repos.settings, settingsCache, clock)
	submissionService := service.NewSubmissionService(repos.submissions)

	g, gctx := errgroup.WithContext(ctx)

	// 6. Round Worker (server-side rotation and expiry timers)
	if cfg.ServerTimersEnabled {
		roundWorker := worker.NewRoundWorker(roundService, repos.teams, settingsCache, locker, clock)
		roundService.SetNotifier(roundWorker)
		teamService.SetNotifier(roundWorker)
		settingsService.SetNotifier(roundWorker)
		g.Go(func() error { return roundWorker.Run(gctx) })
	} else {
		log.Warn().Msg("server timers disabled, rounds advance only on client calls")
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(api.RouterDeps{
		Rounds:         roundService,
		Teams:          teamService,
		Problems:       problemService,
		Settings:       settingsService,
		Submissions:    submissionService,
		Tokens:         tokens,
		AdminGate:      adminGate,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.JudgeTimeout + 30*time.Second,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.JudgeTimeout + 40*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.APIPort).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 8. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server and worker stopped gracefully")
}

// openRepositories selects the storage backend. db is set when Postgres is used.
func openRepositories(ctx context.Context, cfg *config.Config, db **sql.DB) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("using in-memory storage, state is lost on restart")
		return &repositories{
			teams:       repository.NewMemoryTeamRepository(),
			problems:    repository.NewMemoryProblemRepository(),
			submissions: repository.NewMemorySubmissionRepository(),
			settings:    repository.NewMemorySettingsRepository(),
		}, nil
	case config.StorageDriverPostgres:
		conn, err := database.Connect(ctx, cfg.DBConnStr)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		*db = conn
		return &repositories{
			teams:       repository.NewPgTeamRepository(conn),
			problems:    repository.NewPgProblemRepository(conn),
			submissions: repository.NewPgSubmissionRepository(conn),
			settings:    repository.NewPgSettingsRepository(conn),
		}, nil
	default:
		return nil, errors.New("unknown STORAGE_DRIVER " + cfg.StorageDriver)
	}
}
