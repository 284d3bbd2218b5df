package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"CropVol/internal/di"
	"CropVol/internal/domain/models"
)

var (
	analyzeDataset string
	analyzeRegion  string
	analyzeJSON    bool
	analyzeRefresh bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fit EGARCH volatility for a dataset, or one region of it",
	Example: `  cropvol analyze --dataset soybean-mp
  cropvol analyze --dataset soybean-mp --region Indore --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, cleanup, err := di.InitializePipeline(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if analyzeRegion != "" {
			a, err := pipeline.Analyze(ctx, analyzeDataset, analyzeRegion, analyzeRefresh)
			if err != nil {
				return err
			}
			if analyzeJSON {
				return writeJSON(out, a)
			}
			return writeAnalysis(out, a)
		}

		rep, err := pipeline.AnalyzeAll(ctx, analyzeDataset, analyzeRefresh)
		if err != nil {
			return err
		}
		if analyzeJSON {
			return writeJSON(out, rep)
		}
		return writeReport(out, rep)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDataset, "dataset", "", "dataset name")
	analyzeCmd.Flags().StringVar(&analyzeRegion, "region", "", "single region (default: every whitelisted region)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print JSON instead of a table")
	analyzeCmd.Flags().BoolVar(&analyzeRefresh, "refresh", false, "ignore memoized fits")
	_ = analyzeCmd.MarkFlagRequired("dataset")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, rep *models.DatasetReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "dataset %s  run %s  %d regions  %d failed\n\n", rep.Dataset, rep.RunID, len(rep.Regions), rep.Failed())
	fmt.Fprintln(tw, "REGION\tNOBS\tLOGLIK\tBETA\tLAST SIGMA\tSTATUS")
	for _, rf := range rep.Regions {
		if rf.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", rf.Region, rf.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.4f\t%.5f\t%s\n",
			rf.Region, rf.Fit.NObs, rf.Fit.LogLikelihood, rf.Fit.Params.Beta, rf.LastSigma, fitStatus(rf.Fit))
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(tw, "warning: %s\n", warn)
	}
	return tw.Flush()
}

func writeAnalysis(w io.Writer, a *models.RegionAnalysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s / %s\n\n", a.Dataset, a.Region)
	if a.Volatility != nil {
		fit := a.Volatility.Fit
		p := fit.Params
		fmt.Fprintf(tw, "model\t%s\n", fit.Model)
		fmt.Fprintf(tw, "status\t%s\n", fitStatus(&fit))
		fmt.Fprintf(tw, "nobs\t%d\n", fit.NObs)
		fmt.Fprintf(tw, "log-likelihood\t%.4f\n", fit.LogLikelihood)
		fmt.Fprintf(tw, "aic / bic\t%.4f / %.4f\n", fit.AIC, fit.BIC)
		fmt.Fprintf(tw, "mu omega\t%.6f %.6f\n", p.Mu, p.Omega)
		fmt.Fprintf(tw, "alpha gamma beta\t%.6f %.6f %.6f\n", p.Alpha, p.Gamma, p.Beta)
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "DATE\tSIGMA")
		for i, d := range a.Volatility.Dates {
			fmt.Fprintf(tw, "%s\t%.6f\n", d.Format("2006-01-02"), a.Volatility.Values[i])
		}
	}
	for _, f := range a.Forecasts {
		fmt.Fprintf(tw, "forecast %s\t%d points aligned\n", f.Name, len(f.Values))
	}
	stages := make([]string, 0, len(a.Errors))
	for stage := range a.Errors {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		fmt.Fprintf(tw, "error %s\t%s\n", stage, a.Errors[stage])
	}
	for _, warn := range a.Warnings {
		fmt.Fprintf(tw, "warning\t%s\n", warn)
	}
	return tw.Flush()
}

func fitStatus(f *models.FitReport) string {
	if f.Converged {
		return "converged"
	}
	return "not converged: " + f.Status
}
