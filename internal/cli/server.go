package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"olympia-live-service/internal/app"
	"olympia-live-service/internal/config"
	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/infra/memory"
	pgstore "olympia-live-service/internal/infra/postgres"
	redisstore "olympia-live-service/internal/infra/redis"
	"olympia-live-service/internal/scoring"
	transport "olympia-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live match server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	deps := app.Deps{
		Questions: questions,
		Rules:     matchRules(cfg),
	}
	if pool != nil {
		deps.Sessions = pgstore.NewSessionStore(pool)
		deps.Events = pgstore.NewEventStore(pool)
		deps.Seats = pgstore.NewSeatStore(pool)
	} else {
		deps.Sessions = memory.NewSessionStore()
		deps.Events = memory.NewEventStore()
		deps.Seats = memory.NewSeatStore()
	}
	if redisClient != nil {
		deps.Rooms = redisstore.NewRoomDirectory(redisClient, redisTTL)
	}

	service := app.NewLiveService(deps)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting olympia live service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// matchRules applies the configured scoring overrides on top of the defaults.
func matchRules(cfg config.Config) *scoring.Rules {
	rules := scoring.DefaultRules()
	if len(cfg.Scoring.TangTocPoints) > 0 {
		rules.TangTocPoints = cfg.Scoring.TangTocPoints
	}
	if cfg.Scoring.TieWindowMs > 0 {
		rules.TangTocTieWindow = cfg.Scoring.TieWindowMs
	}
	if cfg.Scoring.StealPenalty > 0 {
		rules.StealPenaltyFraction = cfg.Scoring.StealPenalty
	}
	return &rules
}

// sampleQuestions provides a minimal question set for running without
// Postgres; production loads questions from the round_questions table.
func sampleQuestions() map[string]domain.RoundQuestion {
	return map[string]domain.RoundQuestion{
		"kd1": {
			ID:         "kd1",
			MatchID:    "demo",
			RoundType:  domain.RoundKhoiDong,
			OrderIndex: 1,
			Prompt:     "Thủ đô của Việt Nam là gì?",
		},
		"vcnv1": {
			ID:         "vcnv1",
			MatchID:    "demo",
			RoundType:  domain.RoundVCNV,
			OrderIndex: 1,
			Prompt:     "Hàng ngang số 1",
			Metadata:   map[string]any{"letters": 7},
		},
		"tt1": {
			ID:         "tt1",
			MatchID:    "demo",
			RoundType:  domain.RoundTangToc,
			OrderIndex: 1,
			Prompt:     "Đoạn phim: hiện tượng gì đang diễn ra?",
		},
		"vd1": {
			ID:         "vd1",
			MatchID:    "demo",
			RoundType:  domain.RoundVeDich,
			OrderIndex: 1,
			Prompt:     "Câu 20 điểm cho thí sinh ghế 1",
			TargetSeat: intPtr(1),
		},
	}
}

func intPtr(v int) *int { return &v }
