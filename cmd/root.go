package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/supplychain-sim/supplychain-sim/sim"
	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

var (
	// CLI flags
	seed       int64  // Master seed for every random draw
	steps      int    // Number of simulated steps
	logLevel   string // Log verbosity level
	configPath string // Optional YAML run configuration
	dbDriver   string // sqlite or postgres
	dbPath     string // SQLite database file
	outDir     string // Directory for exported CSV logs
	startDate  string // Simulated start date (YYYY-MM-DD)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "supplychain-sim",
	Short: "Step-driven simulator for supply-chain order fulfillment",
}

// runCmd executes a full simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supply-chain simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if err := runSimulation(cmd.Context(), cfg, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// resolveRunConfig layers the config file (if any) over the defaults, then
// applies only the flags the user explicitly set.
func resolveRunConfig(cmd *cobra.Command) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if configPath != "" {
		var err error
		if cfg, err = loadRunConfig(configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("steps") {
		cfg.Simulation.Steps = steps
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = dbDriver
	}
	if flags.Changed("db-path") {
		cfg.Database.Path = dbPath
	}
	if flags.Changed("out-dir") {
		cfg.Export.Dir = outDir
	}
	if flags.Changed("start") {
		start, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return cfg, fmt.Errorf("invalid --start %q: %w", startDate, err)
		}
		cfg.Catalog.Start = start
	}
	return cfg, cfg.Validate()
}

// runSimulation generates the catalog, prepares the store, runs the loop,
// exports the logs and writes the summary to out.
func runSimulation(ctx context.Context, cfg RunConfig, out io.Writer) error {
	logger := logrus.WithField("run_id", uuid.NewString())
	startTime := time.Now()

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	cat, err := catalog.Generate(cfg.Catalog, rng.ForSubsystem(sim.SubsystemCatalog))
	if err != nil {
		return fmt.Errorf("generate catalog: %w", err)
	}
	logger.Infof("Generated %d suppliers, %d items, %d customers",
		len(cat.Suppliers), len(cat.Items), len(cat.Customers))

	loadDotEnv()
	storeCfg, err := cfg.Database.storeConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("connect to %s store: %w", storeCfg.Driver, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warnf("Closing store: %v", cerr)
		}
	}()

	if err := st.ResetSchema(ctx); err != nil {
		return err
	}
	rows, err := sim.PopulateInventory(ctx, st, cat, rng.ForSubsystem(sim.SubsystemInventory),
		cfg.Simulation.ReorderPoint, cat.Start)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d inventory rows into %s store", rows, st.Driver())

	s, err := sim.NewSimulator(cfg.Simulation, cat, st, rng)
	if err != nil {
		return err
	}
	s.Logger = logger
	if err := s.Run(ctx); err != nil {
		return err
	}

	if err := s.Log.Export(cfg.exportFiles()); err != nil {
		return fmt.Errorf("export logs: %w", err)
	}

	summary := trace.Summarize(s.Log)
	fmt.Fprintf(out, "Fulfillment attempts: %d (%.1f%% succeeded), units fulfilled: %d, inventory snapshots: %d\n",
		summary.Attempts, summary.SuccessRate*100, summary.UnitsFulfilled, summary.Snapshots)
	for _, reason := range []trace.FailureReason{
		trace.ReasonUnreliableSupplier, trace.ReasonNoInventoryEntry, trace.ReasonStockout,
	} {
		fmt.Fprintf(out, "  failed (%s): %d\n", reason, summary.Failures[reason])
	}
	if err := s.Metrics.Print(out); err != nil {
		return err
	}
	fmt.Fprintf(out, "Simulation wall time: %s\n", time.Since(startTime).Round(time.Millisecond))
	logger.Info("Simulation complete.")
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags declares the run flags on cmd.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for every random draw (catalog, inventory, events)")
	cmd.Flags().IntVar(&steps, "steps", 100000, "Number of simulated steps")
	cmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML run configuration")

	// Store
	cmd.Flags().StringVar(&dbDriver, "db-driver", store.DriverSQLite, "Database driver (sqlite, postgres)")
	cmd.Flags().StringVar(&dbPath, "db-path", store.DefaultSQLitePath, "SQLite database file (\":memory:\" for in-memory)")

	// Output
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for exported CSV logs")
	cmd.Flags().StringVar(&startDate, "start", "2025-01-01", "Simulated start date (YYYY-MM-DD, UTC)")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
