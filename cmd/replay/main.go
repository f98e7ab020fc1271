package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"backend-esterun/internal/auth"
	"backend-esterun/internal/config"
	"backend-esterun/internal/export"
	"backend-esterun/internal/tracking"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(loadConfig func() config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "replay",
		Short:         "Replay recorded location samples through the tracking pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSamplesCmd(loadConfig))
	root.AddCommand(newTokenCmd(loadConfig))
	return root
}

func newSamplesCmd(loadConfig func() config.Config) *cobra.Command {
	var (
		kind        string
		gpxOut      string
		fitOut      string
		gpxAccuracy float64
		requireBeg  bool
	)

	cmd := &cobra.Command{
		Use:   "samples <file.csv|file.gpx>",
		Short: "Run a sample file through a session and print the resulting activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := tracking.ParseKind(kind)
			if err != nil {
				return err
			}
			params := loadConfig().TrackingParams()
			if cmd.Flags().Changed("require-begin") {
				params.RequireBegin = requireBeg
			}

			samples, err := loadSamples(args[0], gpxAccuracy)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			rec, err := replay(samples, k, params)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), rec, len(samples))

			if gpxOut != "" {
				data, err := export.GPX(rec)
				if err != nil {
					return err
				}
				if err := os.WriteFile(gpxOut, data, 0o644); err != nil {
					return err
				}
			}
			if fitOut != "" {
				f, err := os.Create(fitOut)
				if err != nil {
					return err
				}
				if err := export.FIT(f, rec); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "running", "activity type: running, walking or cycling")
	cmd.Flags().StringVar(&gpxOut, "gpx", "", "write the recorded route as GPX")
	cmd.Flags().StringVar(&fitOut, "fit", "", "write the activity as a FIT file")
	cmd.Flags().Float64Var(&gpxAccuracy, "gpx-accuracy", 5, "accuracy in meters assumed for GPX points")
	cmd.Flags().BoolVar(&requireBeg, "require-begin", false, "wait for an explicit begin after gps lock")
	return cmd
}

func newTokenCmd(loadConfig func() config.Config) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development access token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.IssueToken(loadConfig().JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func printSummary(w io.Writer, rec tracking.ActivityRecord, samples int) {
	fmt.Fprintf(w, "title:    %s\n", rec.Title)
	fmt.Fprintf(w, "type:     %s\n", rec.Kind)
	fmt.Fprintf(w, "samples:  %d read, %d recorded\n", samples, len(rec.Route))
	fmt.Fprintf(w, "distance: %.2f km\n", rec.DistanceKm())
	fmt.Fprintf(w, "duration: %s\n", tracking.FormatDuration(rec.DurationS))
	fmt.Fprintf(w, "pace:     %s /km\n", rec.AveragePace)
	fmt.Fprintf(w, "calories: %.0f kcal\n", rec.Calories)
	if rec.StepCount != nil {
		fmt.Fprintf(w, "steps:    %d\n", *rec.StepCount)
	}
}
