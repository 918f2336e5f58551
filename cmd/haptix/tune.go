package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/haptix/internal/logging"
	"github.com/san-kum/haptix/internal/tune"
)

var (
	tuneKp      []float64
	tuneKi      []float64
	tuneKd      []float64
	tuneMetric  string
	tuneWorkers int
	tuneTop     int
)

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	search, err := tune.New(cfg, tuneMetric, bandPercent, tuneWorkers, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := search.Run(ctx, tune.Grid{Kp: tuneKp, Ki: tuneKi, Kd: tuneKd})
	if err != nil {
		return err
	}
	if tuneTop > 0 && len(results) > tuneTop {
		results = results[:tuneTop]
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{
			fmt.Sprintf("%.3f", r.Kp),
			fmt.Sprintf("%.3f", r.Ki),
			fmt.Sprintf("%.3f", r.Kd),
		}
		switch {
		case r.Err != nil:
			row = append(row, "failed", r.Err.Error())
		case r.Rendered == 0:
			row = append(row, "-", "never rendered")
		default:
			row = append(row, fmt.Sprintf("%.4f", r.Metrics[tuneMetric]), fmt.Sprintf("%.0f%% in band", 100*r.Metrics["in_band"]))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("KP", "KI", "KD", tuneMetric, "NOTE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == 0 && col == 3:
				return goodStyle
			case row >= 0 && row < len(results) && results[row].Err != nil:
				return badStyle
			default:
				return cellStyle
			}
		})
	fmt.Println(t)
	return nil
}
