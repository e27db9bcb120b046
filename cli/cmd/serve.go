package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/pipeline"
	"github.com/bggsnap/bggsnap/trigger"
)

// defaultListen is the webhook listen address.
const defaultListen = ":8478"

// triggerQueueSize bounds pending trigger requests. Push requests beyond
// this are rejected with 503 rather than piling up.
const triggerQueueSize = 16

// shutdownGrace is how long the HTTP server gets to drain on shutdown.
const shutdownGrace = 5 * time.Second

// ServeCommand returns the serve command: the long-running daemon hosting
// the cron schedule and the push webhook.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the trigger daemon (schedule and push webhook)",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Webhook listen address",
			},
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron schedule (five-field, UTC)",
			},
			&cli.StringFlag{
				Name:  "branch",
				Usage: "Branch accepted by push webhooks",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "Shared token required in the webhook token header",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("listen"); v != "" {
		cfg.Serve.Listen = v
	}
	if v := c.String("schedule"); v != "" {
		cfg.Serve.Schedule = v
	}
	if v := c.String("branch"); v != "" {
		cfg.Serve.Branch = v
	}
	if v := c.String("secret"); v != "" {
		cfg.Serve.Secret = v
	}
	if cfg.Serve.Listen == "" {
		cfg.Serve.Listen = defaultListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewProcessLogger()
	job, notifier, err := buildJob(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	requests := make(chan trigger.Request, triggerQueueSize)

	if cfg.Serve.Schedule != "" {
		sched, err := trigger.NewScheduler(cfg.Serve.Schedule, logger)
		if err != nil {
			return err
		}
		go sched.Run(ctx, requests)
	}

	mux := http.NewServeMux()
	mux.Handle("/hooks/push", trigger.NewPushHandler(cfg.Serve.Secret, cfg.Serve.Branch, requests, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("daemon listening", map[string]any{
			"addr":     cfg.Serve.Listen,
			"schedule": cfg.Serve.Schedule,
			"branch":   cfg.Serve.Branch,
		})
		serveErr <- srv.ListenAndServe()
	}()

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		consume(ctx, job, requests, logger)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	stop()
	<-consumeDone

	logger.Info("daemon stopped", nil)
	return runErr
}

// consume serializes trigger requests into runs. Each request becomes one
// run; the job's lock queues anything that arrives mid-run.
func consume(ctx context.Context, job *pipeline.Job, requests <-chan trigger.Request, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			logger.Info("trigger received", map[string]any{
				"kind": string(req.Kind),
				"ref":  req.Ref,
				"at":   req.At.Format(time.RFC3339),
			})
			if _, err := job.Do(ctx, req.Kind); err != nil {
				logger.Error("run could not start", map[string]any{
					"kind":  string(req.Kind),
					"error": err.Error(),
				})
			}
		}
	}
}
