package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eventlog-tools/distqual/internal/config"
	"github.com/eventlog-tools/distqual/internal/coordinator"
	"github.com/eventlog-tools/distqual/internal/dispatch"
	"github.com/eventlog-tools/distqual/internal/ledger"
	"github.com/eventlog-tools/distqual/internal/platform/env"
	"github.com/eventlog-tools/distqual/internal/platform/postgres"
	"github.com/eventlog-tools/distqual/internal/platform/storage"
	"github.com/eventlog-tools/distqual/internal/workerexec"
)

var (
	runEventLogs    string
	runOutputFolder string
	runConfigFile   string
	runMaster       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch one qualification batch",
	Example: `  # Event logs on the local filesystem
  distqual run --config run.yaml --eventlogs /data/eventlogs --output-folder ./qual_run

  # Event logs on shared object storage
  distqual run --config run.yaml --eventlogs s3://spark-logs/prod --output-folder ./qual_run`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runEventLogs, "eventlogs", "", "directory or URI holding the Spark event logs")
	runCmd.Flags().StringVar(&runOutputFolder, "output-folder", "", "local directory for the combined results and run manifest")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "YAML run configuration")
	runCmd.Flags().StringVar(&runMaster, "master", "local", "cluster master URL (only \"local\" is supported)")
	_ = runCmd.MarkFlagRequired("eventlogs")
	_ = runCmd.MarkFlagRequired("output-folder")
	_ = runCmd.MarkFlagRequired("config")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(runConfigFile)
	if err != nil {
		logger.Error("invalid run config", "error", err)
		os.Exit(2)
	}
	if err := coordinator.Preflight(cfg.RequiredEnv); err != nil {
		logger.Error("environment precondition failed", "error", err)
		os.Exit(2)
	}

	mapper, err := newMapper(runMaster)
	if err != nil {
		logger.Error("invalid master", "error", err)
		os.Exit(2)
	}
	gateway, err := newGateway(cfg.CacheRoot, runEventLogs)
	if err != nil {
		logger.Error("invalid storage config", "error", err)
		os.Exit(2)
	}

	store, closeDB, err := openLedger(ctx, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	coord, err := coordinator.New(coordinator.Options{
		Config:         cfg,
		EventLogsPath:  runEventLogs,
		OutputFolder:   runOutputFolder,
		Gateway:        gateway,
		Mapper:         mapper,
		Executor:       workerexec.New(logger),
		Stager:         coordinator.NewLocalStager(),
		ExtraClasspath: sparkRuntimeClasspath(),
		Ledger:         store,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if err := coord.Run(ctx); err != nil {
		return err
	}

	logger.Info("run complete", "output_folder", runOutputFolder)
	return nil
}

func newMapper(master string) (dispatch.Mapper, error) {
	if master != "local" && !strings.HasPrefix(master, "local[") {
		return nil, fmt.Errorf("unsupported master %q", master)
	}
	return dispatch.NewLocalMapper(), nil
}

// newGateway picks the storage backend from the cache-root and event-log
// URI schemes: object-store schemes go through MinIO, everything else
// stays on the local filesystem. One gateway serves both paths, so mixing
// an object-store URI with a local one is rejected up front.
func newGateway(cacheRoot, eventLogs string) (storage.Gateway, error) {
	cacheRemote := isObjectURI(cacheRoot)
	logsRemote := isObjectURI(eventLogs)
	if cacheRemote != logsRemote {
		return nil, fmt.Errorf("cache root %q and event logs %q must use the same storage backend", cacheRoot, eventLogs)
	}
	if !cacheRemote {
		return storage.NewLocalGateway(), nil
	}
	storeCfg, err := storage.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return storage.NewMinioGateway(storeCfg)
}

func isObjectURI(uri string) bool {
	return strings.Contains(uri, "://") && !strings.HasPrefix(uri, "file://")
}

// openLedger wires the optional run ledger. An unset DISTQUAL_DATABASE_URL
// disables it; a set one that cannot be reached is a startup error.
func openLedger(ctx context.Context, logger *slog.Logger) (*ledger.Store, func(), error) {
	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if !dbCfg.Enabled() {
		return nil, func() {}, nil
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("run ledger database unavailable: %w", err)
	}
	store := ledger.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("run ledger enabled")
	return store, func() { _ = db.Close() }, nil
}

// sparkRuntimeClasspath appends the worker-local Spark jars so the analysis
// tool resolves the same Spark classes the cluster runs.
func sparkRuntimeClasspath() []string {
	sparkHome := env.String("SPARK_HOME", "")
	if sparkHome == "" {
		return nil
	}
	return []string{filepath.Join(sparkHome, "jars", "*")}
}
