package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/delve-hq/delve/backend/internal/queue"
	mid "github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/ai"
	oai "github.com/delve-hq/delve/backend/pkg/ai/ollama"
	gai "github.com/delve-hq/delve/backend/pkg/ai/openai"
	"github.com/delve-hq/delve/backend/pkg/engine"
	"github.com/delve-hq/delve/backend/pkg/interview"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/methodology"
	storepgx "github.com/delve-hq/delve/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	RunMigrations()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	conn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	err = queue.SetupQueues(ch, []string{queue.TurnQueue})
	if err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	aiClient := NewAIClient()

	storage, err := storepgx.NewInterviewDBStorageWithConnection(ctx, conn, aiClient)
	if err != nil {
		logger.Fatal("Failed to create storage", "err", err)
	}

	methodologies, detectors, err := LoadEngineConfig()
	if err != nil {
		logger.Fatal("Failed to load engine configuration", "err", err)
	}

	interviewClient, err := interview.NewClient(interview.NewClientParams{
		AIClient:      aiClient,
		Storage:       storage,
		Methodologies: methodologies,
		Detectors:     detectors,
	})
	if err != nil {
		logger.Fatal("Failed to create interview client", "err", err)
	}

	app := &mid.App{
		DBConn:         conn,
		Queue:          ch,
		Key:            &k,
		Interview:      interviewClient,
		Storage:        storage,
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   util.GetEnv("MASTER_USER_ID"),
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// RunMigrations applies pending schema migrations. A database that is
// already current is not an error.
func RunMigrations() {
	dir := util.GetEnvString("MIGRATIONS_DIR", "migrations")
	m, err := migrate.New("file://"+dir, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to initialize migrations", "err", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to apply migrations", "err", err)
	}
}

// NewAIClient builds the configured AI adapter from the environment.
func NewAIClient() ai.InterviewAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewInterviewOllamaClient(oai.NewInterviewOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:  util.GetEnv("AI_CHAT_ANALYSIS_MODEL"),
			QuestionModel:  util.GetEnv("AI_CHAT_QUESTION_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_MAX_CONCURRENT", 2)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewInterviewOpenAIClient(gai.NewInterviewOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			AnalysisModel:  util.GetEnv("AI_CHAT_ANALYSIS_MODEL"),
			QuestionModel:  util.GetEnv("AI_CHAT_QUESTION_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

// LoadEngineConfig assembles the methodology registry and the detector set.
// Methodology YAML files in METHODOLOGY_DIR extend the built-in registry.
func LoadEngineConfig() (*methodology.Registry, *engine.DetectorRegistry, error) {
	registry, err := methodology.DefaultRegistry()
	if err != nil {
		return nil, nil, err
	}

	if dir := util.GetEnv("METHODOLOGY_DIR"); dir != "" {
		extra, err := methodology.LoadDir(dir)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range extra.IDs() {
			m, err := extra.Get(id)
			if err != nil {
				return nil, nil, err
			}
			if err := registry.Add(m); err != nil {
				return nil, nil, err
			}
		}
	}

	detectors, err := engine.DefaultDetectorRegistry(engine.DetectorOptions{
		TokenEncoding: util.GetEnvString("AI_TOKEN_ENCODING", "o200k_base"),
	})
	if err != nil {
		return nil, nil, err
	}

	return registry, detectors, nil
}
