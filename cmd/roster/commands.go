package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/feed"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/turnaround"
	"gopkg.in/yaml.v3"
)

type options struct {
	output   string
	timezone string
	year     int
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "roster",
		Short:         "Parse ED roster exports and check shift trades offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("--output must be json or yaml, got %q", opts.output)
			}
			if opts.verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Output format (json or yaml)")
	cmd.PersistentFlags().StringVar(&opts.timezone, "timezone", "America/Winnipeg", "Facility timezone")
	cmd.PersistentFlags().IntVar(&opts.year, "year", 0, "Year for spreadsheet headers without one (0 = current year)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log skipped events and cells to stderr")

	cmd.AddCommand(newICSCmd(opts), newXLSXCmd(opts), newTradesCmd(opts))

	return cmd
}

func newICSCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ics <file|url>",
		Short: "Parse an iCalendar feed into shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shifts, err := loadShifts(cmd.Context(), opts, args[0], "")
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, shifts)
		},
	}
}

func newXLSXCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "xlsx <file>",
		Short: "Parse a grid-shaped xlsx roster export into shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shifts, err := loadShifts(cmd.Context(), opts, "", args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, shifts)
		},
	}
}

func newTradesCmd(opts *options) *cobra.Command {
	var (
		icsSrc    string
		xlsxSrc   string
		clinician string
		date      string
		code      string
		start     string
		sortBy    string
		minRestH  float64
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List same-day trade candidates for one of a clinician's shifts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (icsSrc == "") == (xlsxSrc == "") {
				return errors.New("exactly one of --ics or --xlsx is required")
			}
			if minRestH <= 0 {
				return errors.New("--min-rest must be > 0")
			}
			if sortBy != "original" && sortBy != "start" {
				return fmt.Errorf("--sort must be original or start, got %q", sortBy)
			}

			loc, err := time.LoadLocation(opts.timezone)
			if err != nil {
				return fmt.Errorf("invalid --timezone: %w", err)
			}

			shifts, err := loadShifts(cmd.Context(), opts, icsSrc, xlsxSrc)
			if err != nil {
				return err
			}

			idx, err := turnaround.FindShift(shifts, clinician, date, code, start)
			if err != nil {
				return fmt.Errorf("%s %s %s: %w", clinician, date, code, err)
			}

			engine := turnaround.New(loc, time.Duration(minRestH*float64(time.Hour)))
			candidates, err := engine.Analyze(shifts, clinician, idx)
			if err != nil {
				return err
			}
			if sortBy == "start" {
				engine.SortByStart(candidates)
			}

			return render(cmd.OutOrStdout(), opts.output, candidates)
		},
	}

	cmd.Flags().StringVar(&icsSrc, "ics", "", "iCalendar file or URL")
	cmd.Flags().StringVar(&xlsxSrc, "xlsx", "", "xlsx roster export")
	cmd.Flags().StringVar(&clinician, "clinician", "", "Clinician who owns the shift")
	cmd.Flags().StringVar(&date, "date", "", "Shift date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&code, "shift", "", "Shift code, e.g. R-PM2")
	cmd.Flags().StringVar(&start, "start", "", "Shift start HH:MM, only needed when the code repeats on that date")
	cmd.Flags().StringVar(&sortBy, "sort", "original", "Candidate order (original or start)")
	cmd.Flags().Float64Var(&minRestH, "min-rest", turnaround.DefaultMinRest.Hours(), "Minimum rest between shifts in hours")
	_ = cmd.MarkFlagRequired("clinician")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("shift")

	return cmd
}

func isURL(src string) bool {
	for _, scheme := range []string{"http://", "https://", "webcal://"} {
		if strings.HasPrefix(strings.ToLower(src), scheme) {
			return true
		}
	}
	return false
}

// loadShifts 读取并解析 icsSrc 或 xlsxSrc 中非空的那个，一条班次都没有解析出来时返回错误
func loadShifts(ctx context.Context, opts *options, icsSrc, xlsxSrc string) ([]domain.Shift, error) {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone: %w", err)
	}

	parserOpts := []roster.Option{roster.WithLogger(slog.Default())}
	if opts.year > 0 {
		parserOpts = append(parserOpts, roster.WithDefaultYear(opts.year))
	}
	parser := roster.NewParser(loc, parserOpts...)

	var report roster.Report
	src := icsSrc

	switch {
	case icsSrc != "":
		var text string
		if isURL(icsSrc) {
			if ctx == nil {
				ctx = context.Background()
			}
			text, err = feed.New(icsSrc).Fetch(ctx)
		} else {
			var b []byte
			b, err = os.ReadFile(icsSrc)
			text = string(b)
		}
		if err != nil {
			return nil, err
		}
		report = parser.ParseICS(text)
	default:
		src = xlsxSrc
		f, err := os.Open(xlsxSrc)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		grid, err := roster.ReadWorkbook(f)
		if err != nil {
			return nil, err
		}
		report = parser.ParseGrid(grid)
	}

	if report.NoShifts() {
		return nil, fmt.Errorf("no shifts could be read from %s (%d entries skipped)", src, report.Skipped)
	}

	return report.Shifts, nil
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
