// Package main runs the background sync worker: a scheduler that enqueues
// recurring sync jobs and a consumer that executes them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-support/backend/config"
	"github.com/atlas-support/backend/internal/assignments"
	"github.com/atlas-support/backend/internal/github"
	"github.com/atlas-support/backend/internal/githublinks"
	"github.com/atlas-support/backend/internal/organizations"
	"github.com/atlas-support/backend/internal/salesforce"
	syncer "github.com/atlas-support/backend/internal/sync"
	"github.com/atlas-support/backend/internal/syncstatus"
	"github.com/atlas-support/backend/internal/tickets"
	"github.com/atlas-support/backend/internal/worker"
	"github.com/atlas-support/backend/internal/zendesk"
	"github.com/atlas-support/backend/pkg/database"
	"github.com/atlas-support/backend/pkg/queue"
	"github.com/atlas-support/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

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

	orch := syncer.NewOrchestrator(zdClient, sfClient, ghClient,
		organizations.NewRepository(pool),
		tickets.NewRepository(pool),
		assignments.NewRepository(pool),
		githublinks.NewRepository(pool),
		syncstatus.NewRepository(pool),
		syncer.Options{
			MaxPagesPerOrg: cfg.Sync.MaxPagesPerOrg,
			OrgPause:       cfg.Sync.OrgPause,
		}, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewSyncProcessor(orch, jobQueue, logger)
	scheduler := worker.NewScheduler(jobQueue, cfg.Sync.DeltaInterval, cfg.Sync.FullInterval, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Run(workerCtx)
	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
