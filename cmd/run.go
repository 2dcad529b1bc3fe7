package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/robocharge/config"
	coremetrics "github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/infra/logger"
	"github.com/kilianp07/robocharge/infra/metrics"
	"github.com/kilianp07/robocharge/qa/scenarios"
)

var scenarioFile string

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run a scenario headless and print the summary",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().StringVarP(&scenarioFile, "file", "f", "", "scenario YAML file")
	rootCmd.AddCommand(runCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := resolveScenario(args)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	var sink coremetrics.Sink = coremetrics.NopSink{}
	if cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("load config: %w", err)}
		}
		if cfg.Metrics.InfluxEnabled {
			sink = metrics.NewInfluxSinkWithFallback(cfg.Metrics)
		}
	}

	model, err := sim.New(sc, sink, logger.New("sim"))
	if err != nil {
		var cfgErr *sim.ConfigError
		if errors.As(err, &cfgErr) {
			return &ExitError{Code: 1, Err: err}
		}
		return &ExitError{Code: 2, Err: err}
	}

	result := model.Run()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if result.Reason == sim.ReasonTimedOut && result.Incomplete > 0 {
		return &ExitError{Code: 3, Err: fmt.Errorf("timed out with %d incomplete vehicle(s)", result.Incomplete)}
	}
	return nil
}

func resolveScenario(args []string) (sim.Scenario, error) {
	switch {
	case scenarioFile != "":
		return scenarios.Load(scenarioFile)
	case len(args) == 1:
		return scenarios.Get(args[0])
	default:
		return sim.Scenario{}, fmt.Errorf("a scenario name or --file is required")
	}
}
