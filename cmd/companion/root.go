package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"health-companion/internal/agent"
	"health-companion/internal/analytics"
	"health-companion/internal/config"
	"health-companion/internal/consultation"
	"health-companion/internal/knowledge"
	"health-companion/internal/logging"
	"health-companion/internal/patient"
)

type rootOptions struct {
	patientID  string
	thinkDelay time.Duration
	logLevel   string
	seed       uint64
}

// app is the in-process stack the terminal commands talk to. Sessions live in
// memory and end with the process.
type app struct {
	svc    consultation.Service
	cache  *analytics.Cache
	logger *zap.Logger
}

func (a *app) Close() {
	a.cache.Close()
	_ = a.logger.Sync()
}

func newApp(opts rootOptions) (*app, error) {
	logger, err := logging.NewServiceLogger("health-companion-cli", opts.logLevel)
	if err != nil {
		return nil, err
	}

	patients := patient.NewDemoStore()
	if opts.patientID != "" {
		if err := patients.SetDefault(opts.patientID); err != nil {
			return nil, err
		}
	}

	cache, err := analytics.NewCache(analytics.NewGenerator(opts.seed), 16, logger)
	if err != nil {
		return nil, err
	}

	svc := consultation.NewService(
		consultation.NewMemoryRepository(),
		agent.NewCompanion(knowledge.NewDefaultStore()),
		patients,
		consultation.Options{
			ThinkDelay: opts.thinkDelay,
			Analytics:  cache,
			Logger:     logger,
		},
	)
	return &app{svc: svc, cache: cache, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	config.LoadEnv(nil)
	cfg := config.Load()

	opts := rootOptions{
		patientID: cfg.DefaultPatientID,
		logLevel:  "warn",
		seed:      cfg.AnalyticsSeed,
	}

	root := &cobra.Command{
		Use:           "companion",
		Short:         "Terminal front end for the surgical health companion demo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.patientID, "patient", opts.patientID, "demo patient profile to bind (default jane_doe)")
	root.PersistentFlags().DurationVar(&opts.thinkDelay, "think-delay", 0, "pause before each reply, e.g. 2s")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug|info|warn|error")
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", opts.seed, "analytics seed (0 draws a random one)")

	root.AddCommand(newChatCmd(&opts))
	root.AddCommand(newAskCmd(&opts))
	root.AddCommand(newAnalyticsCmd(&opts))
	return root
}
