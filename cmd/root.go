package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/cloudscale-sim/cloudscale-sim/sim"
)

var (
	// CLI flags
	scenarioPath string  // Path to the YAML scenario file
	logLevel     string  // Log verbosity level
	horizon      float64 // Overrides the scenario horizon when positive
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cloudscale-sim",
	Short: "Discrete-event simulator for virtualized compute capacity allocation",
}

// runCmd loads a scenario and runs the simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting simulation.")
		}
		scenario, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario: %v", err)
		}
		if horizon > 0 {
			scenario.Horizon = horizon
		}

		logrus.Infof("Starting simulation: %d hosts, %d VMs, horizon=%.2fs",
			len(scenario.Hosts), len(scenario.Vms), scenario.Horizon)

		startTime := time.Now()
		s, err := scenario.Build()
		if err != nil {
			logrus.Fatalf("unable to build simulation: %v", err)
		}
		s.Run()
		s.Metrics.Print()

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// validateCmd checks a scenario file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided.")
		}
		if _, err := sim.LoadScenario(scenarioPath); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("%s: OK", scenarioPath)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to YAML scenario file")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "Override the scenario horizon (seconds)")

	validateCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to YAML scenario file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
