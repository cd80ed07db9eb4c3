package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper_trading/internal/console"
	"paper_trading/internal/ticker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const VersionFile = "version.latest"

var (
	seedFlag     int64
	intervalFlag time.Duration
	quietFlag    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paper_sim",
		Short: "Synthetic market simulator with a paper-trading ledger",
		Long: `paper_sim generates a synthetic stock market on a fixed tick and lets a
single user trade it with market, limit, stop and stop-limit orders.
Commands are read from stdin, e.g. /buy AAPL 10 or /portfolio.`,
		RunE: runSim,
	}

	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 0, "Random seed (0 = config or clock)")
	rootCmd.PersistentFlags().DurationVar(&intervalFlag, "interval", 0, "Tick interval (0 = config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulator and read commands from stdin",
		RunE:  runSim,
	}
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Do not print market event and fill alerts")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, args []string) error {
	app, err := bootstrap(!quietFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app.logger.Info(fmt.Sprintf("Paper Sim %s initialized", app.cfg.Version), app.cfg.LogFields()...)

	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		if err := console.Listen(ctx, os.Stdin, os.Stdout, app.engine.HandleCommand, app.logger); err != nil {
			app.logger.Error("console listener stopped", zap.Error(err))
		}
	}()

	src := ticker.NewWall(app.cfg.Sim.TickInterval)
	err = app.engine.Run(ctx, src)

	// The store is closed by the deferred app.Close; no command may still be
	// running against it.
	<-listenDone
	app.logger.Info("simulator stopped", zap.Int64("ticks", app.engine.Ticks()))
	return err
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the saved portfolio and market without ticking",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			fmt.Println(app.engine.HandleCommand(ctx, "/portfolio"))
			fmt.Println()
			fmt.Println(app.engine.HandleCommand(ctx, "/orders"))
			fmt.Println()
			fmt.Println(app.engine.HandleCommand(ctx, "/market"))
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	var resetMarket, resetPortfolio bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the saved market data and/or portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !resetMarket && !resetPortfolio {
				return fmt.Errorf("nothing to reset: pass --market and/or --portfolio")
			}
			app, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if resetPortfolio {
				fmt.Println(app.engine.HandleCommand(ctx, "/reset portfolio"))
			}
			if resetMarket {
				fmt.Println(app.engine.HandleCommand(ctx, "/reset market"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetMarket, "market", false, "Restore seed prices and clear the event log")
	cmd.Flags().BoolVar(&resetPortfolio, "portfolio", false, "Restore starting cash and clear holdings, orders and transactions")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("paper_sim version %s\n", readVersion())
		},
	}
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return string(version)
}
