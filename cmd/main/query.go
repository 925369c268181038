package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	latestCmd = &cobra.Command{
		Use:   CmdLatest + " <country>",
		Short: "Print the latest value of every indicator for a country",
		Args:  cobra.ExactArgs(1),
		RunE:  runLatestCmd,
	}

	compareCmd = &cobra.Command{
		Use:   CmdCompare + " <country1> <country2> [indicator]",
		Short: "Compare the latest values of two countries, or align one indicator by day",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runCompareCmd,
	}
)

// -----------------------------------------------------------------------------

func runLatestCmd(cmd *cobra.Command, args []string) error {
	// Logs go to stderr so stdout stays parseable.
	p, err := setupPipeline(cmd.Context(), configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer p.close()

	summary, err := p.projector.GetLatest(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

// -----------------------------------------------------------------------------

func runCompareCmd(cmd *cobra.Command, args []string) error {
	p, err := setupPipeline(cmd.Context(), configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer p.close()

	if len(args) == 2 {
		if chartPath != "" {
			return fmt.Errorf("--%s needs an indicator", FlagChart)
		}
		comparison, err := p.projector.CompareLatest(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, comparison)
	}

	if chartPath == "" {
		comparison, err := p.analysis.Compare(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(cmd, comparison)
	}

	png, err := p.analysis.CompareChart(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if err := os.WriteFile(chartPath, png, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartPath)
	return nil
}

// -----------------------------------------------------------------------------

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
