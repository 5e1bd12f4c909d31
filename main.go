package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/classifier"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/handler"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/llm"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
	configx "github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/config"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/database"
	_ "github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/openrouter"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/transport/httpapi"
)

type AppConfig struct {
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	ClassifierBackend string        `envconfig:"CLASSIFIER_BACKEND" default:"keyword"`
	SessionBackend    string        `envconfig:"SESSION_BACKEND" default:"memory"`
	ClassifierTimeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"4s"`
	ToolTimeout       time.Duration `envconfig:"TOOL_TIMEOUT" default:"3s"`
	HistoryWindow     int           `envconfig:"HISTORY_WINDOW" default:"6"`
	MinConfidence     float64       `envconfig:"MIN_CONFIDENCE" default:"0.35"`
	SearchLimit       int           `envconfig:"SEARCH_LIMIT" default:"10"`
	SeedDemoCatalog   bool          `envconfig:"SEED_DEMO_CATALOG" default:"true"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	dbCfg := configx.MustNew[database.Config]("DATABASE")

	ctx := context.Background()

	db, err := database.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", dbCfg.Driver).Msg("open database")
	}
	defer db.Close()

	shop, err := storex.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("init store")
	}
	if err := shop.CreateSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("create schema")
	}
	if appCfg.SeedDemoCatalog {
		if err := seedDemoCatalog(ctx, shop); err != nil {
			log.Fatal().Err(err).Msg("seed demo catalog")
		}
	}

	sessions, err := newSessionStore(appCfg.SessionBackend)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.SessionBackend).Msg("init session store")
	}

	router, err := newClassifier(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.ClassifierBackend).Msg("init classifier")
	}

	gateway, err := toolx.NewGateway(shop,
		toolx.WithTimeout(appCfg.ToolTimeout),
		toolx.WithSearchLimit(appCfg.SearchLimit),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init tool gateway")
	}

	handlers, err := handler.NewRegistry(gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("init handlers")
	}

	turns, err := orchestrator.New(sessions, router, handlers,
		orchestrator.WithHistoryWindow(appCfg.HistoryWindow),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	httpapi.NewHandler(turns).RegisterRoutes(server)

	go func() {
		if err := server.Start(appCfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().
		Str("addr", appCfg.HTTPAddr).
		Str("classifier", appCfg.ClassifierBackend).
		Str("sessions", appCfg.SessionBackend).
		Msg("voice router started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedDemoCatalog inserts the demo products into an empty catalog.
func seedDemoCatalog(ctx context.Context, shop *storex.BunStore) error {
	if _, err := shop.ProductByID(ctx, 1); err == nil {
		return nil
	} else if !errors.Is(err, storex.ErrNotFound) {
		return err
	}
	return shop.InsertProducts(ctx, storex.DemoCatalog()...)
}

func newSessionStore(backend string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore(), nil
	case "upstash":
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, err
		}
		return statex.NewUpstashRedisStore(*cfg)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

func newClassifier(ctx context.Context, app AppConfig) (contractx.Classifier, error) {
	backend := strings.ToLower(strings.TrimSpace(app.ClassifierBackend))
	if backend == "" || backend == "keyword" {
		return classifier.NewKeywordClassifier(), nil
	}

	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil {
		return nil, err
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	orCfg := llmCfg.Classifier()

	var inferer contractx.Inferer
	switch backend {
	case "eino":
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, err
		}
		inferer, err = classifier.NewEinoInferer(ctx, chatModel)
		if err != nil {
			return nil, err
		}
	case "openai":
		client, err := openrouterx.NewClient(orCfg)
		if err != nil {
			return nil, err
		}
		inferer, err = classifier.NewOpenAIInferer(client, orCfg.Model, llmCfg.MaxCompletionToken)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", app.ClassifierBackend)
	}

	return classifier.NewLLMClassifier(inferer,
		classifier.WithTimeout(app.ClassifierTimeout),
		classifier.WithHistoryWindow(app.HistoryWindow),
		classifier.WithMinConfidence(app.MinConfidence),
	)
}
