// Package main runs the support-cache sync API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-support/backend/config"
	"github.com/atlas-support/backend/internal/assignments"
	"github.com/atlas-support/backend/internal/auth"
	"github.com/atlas-support/backend/internal/github"
	"github.com/atlas-support/backend/internal/githublinks"
	"github.com/atlas-support/backend/internal/middleware"
	"github.com/atlas-support/backend/internal/organizations"
	"github.com/atlas-support/backend/internal/salesforce"
	syncer "github.com/atlas-support/backend/internal/sync"
	"github.com/atlas-support/backend/internal/syncstatus"
	"github.com/atlas-support/backend/internal/tickets"
	"github.com/atlas-support/backend/internal/zendesk"
	"github.com/atlas-support/backend/pkg/database"
	"github.com/atlas-support/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// External collaborators. Missing credentials fail here, before any
	// sync is triggered.
	zdClient, err := zendesk.NewClient(zendesk.Config{
		Subdomain: cfg.Zendesk.Subdomain,
		Email:     cfg.Zendesk.Email,
		APIToken:  cfg.Zendesk.APIToken,
		Fields: zendesk.FieldIDs{
			Product:        cfg.Zendesk.FieldProduct,
			Module:         cfg.Zendesk.FieldModule,
			TicketType:     cfg.Zendesk.FieldTicketType,
			WorkflowStatus: cfg.Zendesk.FieldWorkflowStatus,
			IssueSubtype:   cfg.Zendesk.FieldIssueSubtype,
			Escalated:      cfg.Zendesk.FieldEscalated,
		},
	})
	if err != nil {
		logger.Fatal("zendesk", zap.Error(err))
	}
	sfClient, err := salesforce.NewClient(salesforce.Config{
		InstanceURL:  cfg.Salesforce.InstanceURL,
		ClientID:     cfg.Salesforce.ClientID,
		ClientSecret: cfg.Salesforce.ClientSecret,
		TokenURL:     cfg.Salesforce.TokenURL,
	})
	if err != nil {
		logger.Fatal("salesforce", zap.Error(err))
	}
	ghClient, err := github.NewClient(github.Config{
		Token: cfg.GitHub.Token,
		Owner: cfg.GitHub.Owner,
		Repo:  cfg.GitHub.Repo,
	})
	if err != nil {
		logger.Fatal("github", zap.Error(err))
	}

	// Cache store.
	orgRepo := organizations.NewRepository(pool)
	ticketRepo := tickets.NewRepository(pool)
	assignmentRepo := assignments.NewRepository(pool)
	linkRepo := githublinks.NewRepository(pool)
	statusRepo := syncstatus.NewRepository(pool)

	orch := syncer.NewOrchestrator(zdClient, sfClient, ghClient,
		orgRepo, ticketRepo, assignmentRepo, linkRepo, statusRepo,
		syncer.Options{
			MaxPagesPerOrg: cfg.Sync.MaxPagesPerOrg,
			OrgPause:       cfg.Sync.OrgPause,
		}, logger)
	syncHandler := syncer.NewHandler(orch, statusRepo, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/sync")
	api.Use(middleware.JWT(jwtService))
	{
		// Any authenticated service may read status; only admins trigger.
		api.GET("/status", syncHandler.Status)

		admin := middleware.RequireRole("admin")
		api.POST("/full", admin, syncHandler.TriggerFull)
		api.POST("/delta", admin, syncHandler.TriggerDelta)
		api.POST("/organizations", admin, syncHandler.SyncOrganizations)
		api.POST("/tickets", admin, syncHandler.SyncTickets)
		api.POST("/assignments", admin, syncHandler.SyncAssignments)
		api.POST("/links", admin, syncHandler.SyncLinks)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
