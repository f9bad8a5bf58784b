// Command backup-sink consumes one or more Kafka topics and durably mirrors
// every record into Postgres, using a per-partition high-water-mark to
// resume exactly where it left off after any crash or rebalance.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/nais/kafka-topic-backup/internal/appstate"
	"github.com/nais/kafka-topic-backup/internal/apperr"
	"github.com/nais/kafka-topic-backup/internal/config"
	"github.com/nais/kafka-topic-backup/internal/httpapi"
	"github.com/nais/kafka-topic-backup/internal/ingest"
	"github.com/nais/kafka-topic-backup/internal/metrics"
	"github.com/nais/kafka-topic-backup/internal/orchestrator"
	"github.com/nais/kafka-topic-backup/internal/store"
	"github.com/nais/kafka-topic-backup/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpAddr        = "0.0.0.0:8080"
	dbEnvPrefix     = "NAIS_DATABASE_PAW_KAFKA_TOPIC_BACKUP_TOPICBACKUP"
	brokerEnvPrefix = "KAFKA"
	serviceName     = "kafka-topic-backup"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "backup-sink",
		Short: "Back up Kafka topics into Postgres with exactly-once-ingest semantics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config/config.toml", "path to the topic-list TOML config file")
	return cmd
}

func runApp(ctx context.Context, configPath string) error {
	logger, err := telemetry.NewLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	tp, shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, config.OTLPEndpoint())
	if err != nil {
		logger.Warn("tracing init failed, continuing without it", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}
	_ = tp

	state := appstate.New()

	topics, err := config.LoadTopicsFile(configPath)
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}

	dbCfg, err := config.LoadDatabaseConfig(dbEnvPrefix)
	if err != nil {
		return fmt.Errorf("load database config: %w", err)
	}
	logger.Info("database config loaded", zap.Object("db", dbCfg))

	brokerCfg, err := config.LoadBrokerConfig(brokerEnvPrefix)
	if err != nil {
		return fmt.Errorf("load broker config: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("init db pool: %w", err)
	}
	defer func() {
		pool.Close()
		logger.Info("pg pool closed")
	}()

	if err := store.Bootstrap(ctx, pool); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	rebalanceHandler := ingest.NewRebalanceHandler(pool, logger)
	persister := ingest.NewPersister(pool, recorder, logger)

	tlsConfig, err := buildBrokerTLSConfig(brokerCfg)
	if err != nil {
		return fmt.Errorf("build broker tls config: %w", err)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokerCfg.BootstrapServers...),
		kgo.ConsumerGroup(brokerCfg.GroupID),
		kgo.ConsumeTopics(topics.Topics...),
		kgo.DialTLSConfig(tlsConfig),
		kgo.OnPartitionsAssigned(rebalanceHandler.OnAssigned),
		kgo.OnPartitionsRevoked(rebalanceHandler.OnRevoked),
		kgo.OnPartitionsLost(rebalanceHandler.OnLost),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return fmt.Errorf("init kafka client: %w", err)
	}
	defer func() {
		client.Close()
		logger.Info("kafka consumer closed")
	}()

	loop := ingest.NewLoop(client, persister, logger)

	state.SetReady()
	state.SetHasStarted()
	logger.Info("backup-sink started", zap.Strings("topics", topics.Topics))

	httpServer := httpapi.New(httpAddr, state, registry)

	return orchestrator.Run(ctx, state, logger,
		func(ctx context.Context) error { return loop.Run(ctx) },
		func(ctx context.Context) error { return httpServer.Run(ctx) },
	)
}

// buildBrokerTLSConfig loads the mutual-TLS client certificate and the
// broker's root CA from the paths in cfg, mirroring the cert/key/CA trio the
// cluster sidecar mounts alongside the application.
func buildBrokerTLSConfig(cfg config.BrokerConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.SSLCertPath, cfg.SSLKeyPath)
	if err != nil {
		return nil, apperr.New(apperr.DomainConfig, "SSLCERT", err)
	}

	caBytes, err := os.ReadFile(cfg.SSLRootCertPath)
	if err != nil {
		return nil, apperr.New(apperr.DomainConfig, "SSLROOTCERT", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caBytes) {
		return nil, apperr.New(apperr.DomainConfig, "SSLROOTCERT", fmt.Errorf("no valid certificates found in root CA file"))
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
