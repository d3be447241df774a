package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/config"
	"github.com/copays/copayd/internal/core/application"
	"github.com/copays/copayd/internal/infrastructure/chain"
	"github.com/copays/copayd/internal/infrastructure/chain/btc"
	webhookpubsub "github.com/copays/copayd/internal/infrastructure/pubsub/webhook"
	dbbadger "github.com/copays/copayd/internal/infrastructure/storage/badger"
	"github.com/copays/copayd/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()
	dbDir := filepath.Join(datadir, config.DbLocation)

	repoManager, err := dbbadger.NewRepoManager(dbDir, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to open db")
	}
	defer repoManager.Close()

	pubsubSvc, err := webhookpubsub.NewService(dbDir, nil)
	if err != nil {
		log.WithError(err).Fatal("failed to open webhooks db")
	}
	defer pubsubSvc.Close()

	explorerTimeout := time.Duration(
		config.GetInt(config.ExplorerRequestTimeoutKey),
	) * time.Second
	btcAdapter, err := btc.NewService(
		config.GetString(config.ExplorerEndpointKey),
		config.GetString(config.NetworkKey),
		explorerTimeout,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to setup btc adapter")
	}

	chainRegistry := chain.NewRegistry()
	chainRegistry.RegisterAdapter("btc", btcAdapter)

	pollInterval := time.Duration(
		config.GetInt(config.ConfirmationPollIntervalKey),
	) * time.Second
	listener := application.NewBlockchainListener(
		repoManager, chainRegistry, pubsubSvc, pollInterval,
	)
	listener.Start()
	defer listener.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.GetBool(config.EnableProfilerKey) {
		statsInterval := time.Duration(
			config.GetInt(config.StatsIntervalKey),
		) * time.Second
		stats.EnableMemoryStatistics(
			ctx, statsInterval, filepath.Join(datadir, config.ProfilerLocation),
		)
	}

	log.Infof(
		"daemon running on %s network", config.GetString(config.NetworkKey),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down")
}
