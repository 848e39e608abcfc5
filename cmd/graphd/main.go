// Command graphd is the entrypoint for the code knowledge graph core: it
// wires the graph store, relational store, temporal engine, validator, and
// checkpoint runner behind a small set of operational subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codegraph/knowledgegraph/internal/checkpoint"
	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/configwatch"
	"github.com/codegraph/knowledgegraph/internal/events"
	"github.com/codegraph/knowledgegraph/internal/facade"
	"github.com/codegraph/knowledgegraph/internal/graphstore"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/relstore"
	"github.com/codegraph/knowledgegraph/internal/temporal"
)

var (
	verbose    bool
	configPath string
	logger     *zap.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "Code knowledge graph ingestion and consistency core",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		categories := map[logging.Category]bool{}
		for k, v := range cfg.Logging.Categories {
			categories[logging.Category(k)] = v
		}
		logging.Initialize(logger, cfg.Logging.DebugMode || verbose, categories)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "graphd.yaml", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd, migrateCmd, validateCmd, checkpointCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildFacade connects every subsystem and returns a ready-to-use facade.
// Callers own the returned facade and must call Shutdown.
func buildFacade(ctx context.Context) (*facade.Facade, error) {
	graph, err := graphstore.New(ctx, cfg.GraphStore)
	if err != nil {
		return nil, fmt.Errorf("connect graph store: %w", err)
	}
	if err := graph.EnsureSchema(ctx); err != nil {
		logging.Warnf(logging.CategoryBoot, "ensure schema: %v", err)
	}

	var rel *relstore.Store
	if cfg.RelStore.DSN != "" {
		rel, err = relstore.New(cfg.RelStore)
		if err != nil {
			return nil, fmt.Errorf("connect relational store: %w", err)
		}
	}

	engine := temporal.New(graph)
	validator := temporal.NewValidator(graph, engine, cfg.Validator)

	var runner *checkpoint.Runner
	if rel != nil {
		runner = checkpoint.New(rel, engine, cfg.Checkpoint)
		if err := runner.Hydrate(ctx); err != nil {
			logging.Warnf(logging.CategoryBoot, "hydrate checkpoint runner: %v", err)
		}
	}

	return facade.New(graph, rel, engine, validator, runner), nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion core and the session/agent event subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		f, err := buildFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Shutdown(context.Background(), 30*time.Second)

		watcher := configwatch.New(configPath, func(reloaded *config.Config) {
			categories := map[logging.Category]bool{}
			for k, v := range reloaded.Logging.Categories {
				categories[logging.Category(k)] = v
			}
			logging.Initialize(logger, reloaded.Logging.DebugMode || verbose, categories)
			cfg = reloaded
		})
		if err := watcher.Start(); err != nil {
			logging.Warnf(logging.CategoryBoot, "config hot-reload disabled: %v", err)
		} else {
			defer watcher.Stop()
		}

		sub, err := events.NewSubscriber(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect event subscriber: %w", err)
		}
		if sub == nil {
			logging.Infof(logging.CategoryBoot, "session/agent event channel disabled, serving without checkpoint triggers")
			<-ctx.Done()
			return nil
		}
		defer sub.Close()

		return sub.Run(ctx, sessionEventHandler(f))
	},
}

// sessionEventHandler enqueues a checkpoint job whenever a session ends or
// a task completes with a non-empty change set (§6.4).
func sessionEventHandler(f *facade.Facade) events.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		switch env.Kind {
		case events.KindSessionEnded, events.KindTaskCompleted:
			if len(env.SeedEntities) == 0 {
				return nil
			}
			if f.Runner == nil {
				return nil
			}
			_, err := f.RequestCheckpoint(ctx, checkpoint.Payload{
				SessionID:    env.SessionID,
				SeedEntities: env.SeedEntities,
				Reason:       model.CheckpointManual,
				Hops:         cfg.Checkpoint.DefaultHops,
			})
			return err
		default:
			return nil
		}
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create graph store schema/indexes and run relational store migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		graph, err := graphstore.New(ctx, cfg.GraphStore)
		if err != nil {
			return err
		}
		defer graph.Close(ctx)
		if err := graph.EnsureSchema(ctx); err != nil {
			return err
		}

		if cfg.RelStore.DSN == "" {
			logging.Infof(logging.CategoryBoot, "no relational store DSN configured, skipping relational migration")
			return nil
		}
		rel, err := relstore.New(cfg.RelStore)
		if err != nil {
			return err
		}
		defer rel.Close()
		return rel.Migrate(ctx)
	},
}

var (
	validateEntities   []string
	validateAutoRepair bool
	validateDryRun     bool
	validateMaxEntities int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Scan entity version timelines for broken PREVIOUS_VERSION chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		graph, err := graphstore.New(ctx, cfg.GraphStore)
		if err != nil {
			return err
		}
		defer graph.Close(ctx)

		engine := temporal.New(graph)
		validator := temporal.NewValidator(graph, engine, cfg.Validator)

		entityIDs := validateEntities
		if len(entityIDs) == 0 {
			entityIDs, err = graph.ListEntityIDs(ctx, validateMaxEntities)
			if err != nil {
				return err
			}
		}

		result, err := validator.Validate(ctx, entityIDs, temporal.ValidateOptions{
			AutoRepair:  validateAutoRepair,
			DryRun:      validateDryRun,
			MaxEntities: validateMaxEntities,
		})
		if err != nil {
			return err
		}

		fmt.Printf("scanned %d entities, inspected %d versions, repaired %d links\n",
			result.ScannedEntities, result.InspectedVersions, result.RepairedLinks)
		for _, issue := range result.Issues {
			repaired := "unrepaired"
			if issue.Repaired != nil && *issue.Repaired {
				repaired = "repaired"
			}
			fmt.Printf("  %s entity=%s version=%s (%s)\n", issue.Kind, issue.EntityID, issue.VersionID, repaired)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateEntities, "entity", nil, "entity id to validate (repeatable; default: scan all)")
	validateCmd.Flags().BoolVar(&validateAutoRepair, "auto-repair", false, "repair missing/misordered PREVIOUS_VERSION links")
	validateCmd.Flags().BoolVar(&validateDryRun, "dry-run", false, "report issues without repairing them")
	validateCmd.Flags().IntVar(&validateMaxEntities, "max-entities", 0, "cap on scanned entities (0 = unbounded)")
}

var (
	checkpointSeeds  []string
	checkpointReason string
	checkpointHops   int
	checkpointSession string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Enqueue a checkpoint job for a seed entity set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(checkpointSeeds) == 0 {
			return fmt.Errorf("at least one --seed entity id is required")
		}

		ctx := context.Background()
		f, err := buildFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Shutdown(context.Background(), 30*time.Second)

		if f.Runner == nil {
			return fmt.Errorf("checkpoint runner requires a configured relational store DSN")
		}

		jobID, err := f.RequestCheckpoint(ctx, checkpoint.Payload{
			SessionID:    checkpointSession,
			SeedEntities: checkpointSeeds,
			Reason:       model.CheckpointReason(checkpointReason),
			Hops:         checkpointHops,
		})
		if err != nil {
			return err
		}

		if !f.Runner.Idle(30 * time.Second) {
			logging.Warnf(logging.CategoryBoot, "checkpoint job %s did not settle within 30s", jobID)
		}
		fmt.Println(jobID)
		return nil
	},
}

func init() {
	checkpointCmd.Flags().StringSliceVar(&checkpointSeeds, "seed", nil, "seed entity id (repeatable)")
	checkpointCmd.Flags().StringVar(&checkpointReason, "reason", string(model.CheckpointManual), "checkpoint reason")
	checkpointCmd.Flags().IntVar(&checkpointHops, "hops", 2, "traversal hops from each seed")
	checkpointCmd.Flags().StringVar(&checkpointSession, "session", "", "session id to attribute the checkpoint to")
}
