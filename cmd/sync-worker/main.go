package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devicesync.service/internal/authz"
	"devicesync.service/internal/config"
	"devicesync.service/internal/core"
	"devicesync.service/internal/gateway"
	"devicesync.service/internal/ports/messaging"
	"devicesync.service/internal/ports/repository"
	"devicesync.service/internal/worker"
	"devicesync.service/internal/worker/dispatch"
	"devicesync.service/pkg/aws"
	"devicesync.service/pkg/database"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	// DB connection
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()
	log.Println("Successfully connected to the database.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("unable to load SDK config: %v", err)
	}

	// Initialize Dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)

	syncRepo := repository.NewSyncRecordRepository(db)
	logRepo := repository.NewDeviceSyncLogRepository(db)
	directory := repository.NewDirectoryRepository(db)
	producer := messaging.NewSQSProducer(sqsClient, cfg.DispatchSQSQueueURL)
	bridge := gateway.NewHTTPBridge(cfg.DeviceBridgeURL, time.Duration(cfg.DeviceAckTimeoutSeconds)*time.Second, logRepo)
	coreService := core.NewEmployeeSyncService(syncRepo, logRepo, directory, bridge, producer, authz.NewDefaultAuthorizer())

	processor := dispatch.NewProcessor(syncRepo, coreService)

	// Start Worker
	ctx, cancel := context.WithCancel(context.Background())
	app := worker.NewWorker(sqsClient, cfg.DispatchSQSQueueURL, processor)

	go func() {
		app.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down worker...")

	// Cancel the context to signal the worker to stop polling.
	cancel()

	log.Println("Worker exited gracefully")
}
