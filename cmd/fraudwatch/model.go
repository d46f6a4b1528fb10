package main

import (
	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/spf13/cobra"
)

func (a *app) modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the deployed scoring model",
	}
	cmd.AddCommand(a.modelInfoCmd())
	cmd.AddCommand(a.modelFeaturesCmd())
	cmd.AddCommand(a.modelHealthCmd())
	return cmd
}

func (a *app) modelInfoCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show model version, metrics and risk thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.scorer.FetchModelInfo(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(info)
			}
			a.println(cli.RenderModelInfo(*info))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	return cmd
}

func (a *app) modelFeaturesCmd() *cobra.Command {
	var (
		asJSON bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Chart the model's feature importance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fi, err := a.scorer.FetchFeatureImportance(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(fi)
			}
			a.println(cli.RenderFeatureImportance(*fi, width))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	cmd.Flags().IntVar(&width, "width", 40, "width of the longest bar")
	return cmd
}

func (a *app) modelHealthCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the model is loaded and ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.scorer.FetchHealth(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(report)
			}
			a.println(cli.RenderHealth(*report))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	return cmd
}
