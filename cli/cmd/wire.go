package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/adapter"
	redisadapter "github.com/bggsnap/bggsnap/adapter/redis"
	"github.com/bggsnap/bggsnap/adapter/webhook"
	"github.com/bggsnap/bggsnap/archive"
	"github.com/bggsnap/bggsnap/bgg"
	"github.com/bggsnap/bggsnap/cli/config"
	"github.com/bggsnap/bggsnap/fetch"
	"github.com/bggsnap/bggsnap/ledger"
	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/metrics"
	"github.com/bggsnap/bggsnap/pipeline"
	"github.com/bggsnap/bggsnap/types"
)

// Defaults applied when neither config nor flags say otherwise.
const (
	defaultOutputDir   = "data"
	defaultArtifactDir = "artifacts"
	defaultLedgerDir   = "ledger"
)

// loadConfig reads the file named by --config, or the default config file
// when present. Flag overrides are applied by each command on top of this.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(config.DefaultPath)
}

// storageBackend names the artifact store backend for metric dimensions.
func storageBackend(cfg *config.Config) string {
	if cfg.Storage.Backend == "" {
		return "fs"
	}
	return cfg.Storage.Backend
}

// buildStore constructs the artifact store selected by the config.
func buildStore(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	switch storageBackend(cfg) {
	case "fs":
		root := cfg.Storage.Path
		if root == "" {
			root = defaultArtifactDir
		}
		return archive.NewFSStore(root)
	case "s3":
		bucket, prefix := ledger.ParseS3Path(cfg.Storage.Path)
		return archive.NewS3Store(ctx, archive.S3Config{
			Bucket:    bucket,
			Prefix:    prefix,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			PathStyle: cfg.Storage.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", cfg.Storage.Backend)
	}
}

// buildLedger constructs the run history, or nil when history is disabled.
func buildLedger(ctx context.Context, cfg *config.Config) (*ledger.Ledger, error) {
	if !cfg.LedgerEnabled() {
		return nil, nil
	}

	source := cfg.Username
	if source == "" {
		source = "bggsnap"
	}

	switch cfg.Ledger.Backend {
	case "fs", "":
		root := cfg.Ledger.Path
		if root == "" {
			root = defaultLedgerDir
		}
		return ledger.NewFS(cfg.Ledger.Dataset, source, root)
	case "s3":
		bucket, prefix := ledger.ParseS3Path(cfg.Ledger.Path)
		return ledger.NewS3(ctx, cfg.Ledger.Dataset, source, ledger.S3Config{
			Bucket: bucket,
			Prefix: prefix,
			Region: cfg.Ledger.Region,
		})
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s (must be fs or s3)", cfg.Ledger.Backend)
	}
}

// buildNotifier constructs the run-completion notifier from the adapter
// config. An empty adapter type yields a notifier with no adapters.
func buildNotifier(logger *log.Logger, cfg *config.Config) (*adapter.Notifier, error) {
	var retries int
	if cfg.Adapter.Retries != nil {
		retries = *cfg.Adapter.Retries
	}

	switch cfg.Adapter.Type {
	case "":
		return adapter.NewNotifier(logger), nil
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return adapter.NewNotifier(logger, a), nil
	case "redis":
		a, err := redisadapter.New(redisadapter.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return adapter.NewNotifier(logger, a), nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", cfg.Adapter.Type)
	}
}

// outputDir resolves the download target directory.
func outputDir(cfg *config.Config) string {
	if cfg.OutputDir == "" {
		return defaultOutputDir
	}
	return cfg.OutputDir
}

// buildRunnerFunc wires a per-run runner factory over a shared store.
// Building per run keeps the logger and collector bound to run identity.
func buildRunnerFunc(cfg *config.Config, store archive.Store) pipeline.BuildFunc {
	return func(meta types.RunMeta) (*pipeline.Runner, error) {
		if cfg.Username == "" {
			return nil, fmt.Errorf("username is required (set --user or username in config)")
		}

		logger := log.NewLogger(&meta)
		collector := metrics.NewCollector(meta.RunID, string(meta.Trigger), storageBackend(cfg))

		retries := -1
		if cfg.API.Retries != nil {
			retries = *cfg.API.Retries
		}
		client := bgg.New(bgg.Config{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout.Duration,
			Retries: retries,
			Delay:   cfg.API.Delay.Duration,
		}, collector)
		fetcher := fetch.New(client, cfg.Username, logger, collector)

		dir := outputDir(cfg)
		phases := []pipeline.Phase{
			pipeline.NewCommandPhase(types.PhaseLint, cfg.Phases.Lint, cfg.Phases.Workdir, logger),
			pipeline.NewCommandPhase(types.PhaseTest, cfg.Phases.Test, cfg.Phases.Workdir, logger),
			pipeline.NewFetchPhase(fetcher, dir),
		}

		archiver := archive.NewArchiver(store, logger, collector)
		return pipeline.NewRunner(phases, dir, archiver, logger, collector), nil
	}
}

// buildJob wires the full run entry point: store, ledger, notifier, lock.
// The returned notifier must be closed by the caller.
func buildJob(ctx context.Context, cfg *config.Config, logger *log.Logger) (*pipeline.Job, *adapter.Notifier, error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	led, err := buildLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	notifier, err := buildNotifier(logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	job := &pipeline.Job{
		Build:     buildRunnerFunc(cfg, store),
		Lock:      pipeline.NewLock(),
		Notifiers: []pipeline.Notifier{notifier},
		Logger:    logger,
	}
	if led != nil {
		job.Recorder = led
	}
	return job, notifier, nil
}
