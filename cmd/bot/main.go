package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	intakeapp "github.com/vitrina/stockbot/internal/application/intake"
	"github.com/vitrina/stockbot/internal/domain/intake"
	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/domain/sessionlog"
	"github.com/vitrina/stockbot/internal/infrastructure/commerce"
	"github.com/vitrina/stockbot/internal/infrastructure/config"
	"github.com/vitrina/stockbot/internal/infrastructure/logger"
	"github.com/vitrina/stockbot/internal/infrastructure/persistence"
	"github.com/vitrina/stockbot/internal/infrastructure/telemetry"
	"github.com/vitrina/stockbot/internal/infrastructure/transport"
	"github.com/vitrina/stockbot/internal/interfaces/http/handler"
	"github.com/vitrina/stockbot/internal/interfaces/http/router"
)

func main() {
	// Missing required identifiers abort startup entirely.
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stockbot",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to open session log store", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	logRepo := persistence.NewGormSessionLogRepository(db.DB)
	recorder := sessionlog.NewRecorder(logRepo, log)

	publisher, err := commerce.NewShopifyAdapter(&commerce.ShopifyConfig{
		StoreURL:       cfg.Commerce.StoreURL,
		AccessToken:    cfg.Commerce.AccessToken,
		RESTVersion:    cfg.Commerce.RESTVersion,
		GraphQLVersion: cfg.Commerce.GraphQLVersion,
		TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
		LocationIDs:    cfg.Chat.LocationIDs(),
	}, log, metrics)
	if err != nil {
		log.Fatal("Failed to configure commerce adapter", zap.Error(err))
	}

	chat := transport.NewConsoleTransport(log)

	branches := make([]intakeapp.Branch, len(cfg.Chat.Branches))
	for i, b := range cfg.Chat.Branches {
		branches[i] = intakeapp.Branch{ID: b.ID, Name: b.Name}
	}
	workflow := intakeapp.NewService(
		intakeapp.Options{
			GroupID:  cfg.Chat.GroupID,
			HostID:   cfg.Chat.HostID,
			Branches: branches,
		},
		intake.NewRules(cfg.Intake.NumericSizeBase),
		chat,
		publisher,
		recorder,
		logRepo,
		log,
		metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.HTTP.Enabled {
		engine := router.New(log, registry, handler.NewStatusHandler(workflow, logRepo))
		server = &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("Status server listening", zap.String("port", cfg.HTTP.Port))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	if err := workflow.Start(ctx); err != nil {
		log.Fatal("Failed to announce startup", zap.Error(err))
	}

	// The console transport has no real inbound side; scripted messages are
	// read from stdin as "<author>|<text>" (append "|img" to attach a fake
	// image). The production deployment feeds HandleMessage from the chat
	// client's event stream instead.
	go consumeStdin(ctx, cfg, workflow, log)

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	workflow.Stop(shutdownCtx)
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Status server shutdown failed", zap.Error(err))
		}
	}
	log.Info("Bot stopped")
}

func consumeStdin(ctx context.Context, cfg *config.Config, workflow *intakeapp.Service, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		author, rest, ok := strings.Cut(line, "|")
		if !ok {
			log.Warn("ignoring malformed console line", zap.String("line", line))
			continue
		}

		msg := transport.ConsoleMessage{
			Chat:   cfg.Chat.GroupID,
			Sender: strings.TrimSpace(author),
		}
		if text, flag, hasFlag := strings.Cut(rest, "|"); hasFlag && strings.TrimSpace(flag) == "img" {
			msg.Text = strings.TrimSpace(text)
			msg.Media = &integration.MediaPayload{
				Data:     []byte{0xff, 0xd8, 0xff},
				MimeType: "image/jpeg",
				Filename: "console.jpg",
			}
		} else {
			msg.Text = strings.TrimSpace(rest)
		}

		workflow.HandleMessage(ctx, msg)
	}
}
