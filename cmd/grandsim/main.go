// Command grandsim runs the grand-strategy simulation core: load a
// scenario, build the world, and advance it day by day against the wall
// clock, with an HTTP/websocket surface for observation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/grandsim/internal/api"
	"github.com/talgya/grandsim/internal/engine"
	"github.com/talgya/grandsim/internal/persistence"
	"github.com/talgya/grandsim/internal/scenario"
)

func main() {
	root := &cobra.Command{
		Use:          "grandsim",
		Short:        "Deterministic grand-strategy simulation engine",
		SilenceUsage: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	root.AddCommand(newRunCmd(), newGenerateCmd(), newValidateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	cfg := scenario.DefaultGenConfig()
	var out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := scenario.Generate(cfg)
			if err := sc.Save(out); err != nil {
				return err
			}
			slog.Info("scenario generated",
				"path", out,
				"provinces", len(sc.Provinces),
				"countries", len(sc.Countries),
				"pops", len(sc.Bookmark.Pops),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "scenario.yaml", "output path")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "generation seed")
	cmd.Flags().IntVar(&cfg.Width, "width", cfg.Width, "province grid width")
	cmd.Flags().IntVar(&cfg.Height, "height", cfg.Height, "province grid height")
	cmd.Flags().IntVar(&cfg.Countries, "countries", cfg.Countries, "number of countries")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>",
		Short: "Load a scenario, lock every registry, and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			sim, es, err := sc.Build()
			if err != nil {
				return fmt.Errorf("%s: %w", es, err)
			}
			totalPops := 0
			for _, p := range sim.Provinces {
				totalPops += len(p.Pops)
			}
			slog.Info("scenario valid",
				"name", sc.Name,
				"start_date", sim.Date.String(),
				"goods", sim.Market.Len(),
				"countries", len(sim.Countries),
				"provinces", len(sim.Provinces),
				"pops", totalPops,
			)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		dbPath string
		port   int
		speed  int
		paused bool
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario against the wall clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			if seed != 0 {
				sc.Seed = seed
			}
			sim, es, err := sc.Build()
			if err != nil {
				return fmt.Errorf("%s: %w", es, err)
			}

			var db *persistence.DB
			if dbPath != "" {
				if dir := filepath.Dir(dbPath); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return err
					}
				}
				db, err = persistence.Open(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				slog.Info("database opened", "path", dbPath)
			}

			var tickGate sync.Mutex
			hub := api.NewHub()

			days := 0
			clock := engine.NewClock(func() {
				if sim.StopRequested() {
					return
				}
				tickGate.Lock()
				digest := sim.Tick()
				tickGate.Unlock()

				days++
				if db != nil {
					db.RecordTick(sim, digest)
				}
				hub.Broadcast(digest)
				if days%30 == 0 {
					slog.Info("month complete",
						"date", digest.Date,
						"population", humanize.Comma(digest.TotalPopulation),
						"prices_changed", len(digest.PricesChanged),
						"tax_collected", digest.TaxCollected.String(),
					)
				}
			}, nil)
			clock.SetSpeed(speed)
			clock.SetPaused(paused)

			server := &api.Server{
				Sim:      sim,
				Clock:    clock,
				Hub:      hub,
				Port:     port,
				TickGate: &tickGate,
			}
			server.Start()

			stop := make(chan struct{})
			go clock.Run(stop)

			slog.Info("simulation running",
				"scenario", sc.Name,
				"date", sim.Date.String(),
				"speed", clock.Speed(),
				"paused", clock.Paused(),
				"api_port", port,
			)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			slog.Info("shutting down")
			sim.RequestStop()
			close(stop)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "data/grandsim.db", "sqlite recording path (empty disables)")
	cmd.Flags().IntVar(&port, "port", 8087, "api listen port")
	cmd.Flags().IntVar(&speed, "speed", 2, "starting simulation speed 0..4")
	cmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override scenario seed")
	return cmd
}
