package main

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/san-kum/haptix/internal/backend"
	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/storage"
)

var (
	dataDir     string
	configFile  string
	preset      string
	backendName string
	duration    float64
	mqttBroker  string
	logLevel    string
	devLog      bool
	realtime    bool

	exportFormat string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Padding(0, 1)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Padding(0, 1)
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1)
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "haptix",
		Short:        "haptic friction renderer",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "render friction until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runSession,
	}
	runCmd.Flags().StringVar(&backendName, "backend", "sim", "rig backend: "+strings.Join(backend.NewRegistry().List(), "|"))
	runCmd.Flags().Float64Var(&duration, "duration", 0, "stop after this many seconds (0: until interrupted)")
	runCmd.Flags().StringVar(&mqttBroker, "mqtt", "", "publish records to this MQTT broker, e.g. tcp://localhost:1883")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	runCmd.Flags().BoolVar(&devLog, "dev", false, "human-readable logs")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "run the simulated rig at wall-clock speed")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "list recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  listSessions,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "write a session's records to stdout (latest if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSession,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv|json")

	mkconfCmd := &cobra.Command{
		Use:   "mkconf [path]",
		Short: "write a config file with every setting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "haptix.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			cfg, err := baseConfig()
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			if err == nil {
				err = cfg.Validate()
			}
			return err
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "sweep controller gains on the simulated rig",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	tuneCmd.Flags().Float64SliceVar(&tuneKp, "kp", nil, "proportional gains to try (default: configured)")
	tuneCmd.Flags().Float64SliceVar(&tuneKi, "ki", nil, "integral gains to try (default: configured)")
	tuneCmd.Flags().Float64SliceVar(&tuneKd, "kd", nil, "derivative gains to try (default: configured)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "error_rms", "metric to rank by")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", runtime.NumCPU(), "simulations run in parallel")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 10, "show only the best results (0: all)")

	rootCmd.AddCommand(runCmd, sessionsCmd, exportCmd, mkconfCmd, configCmd, presetsCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func baseConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" && !config.ApplyPreset(cfg, preset) {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	return cfg, nil
}

// loadConfig layers preset, config file, environment and finally the flags
// the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	base, err := baseConfig()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOver(base, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("duration") {
		cfg.Loop.Duration = duration
	}
	if flags.Changed("mqtt") {
		cfg.Telemetry.Broker = mqttBroker
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("dev") {
		cfg.Log.Development = devLog
	}
	if flags.Changed("realtime") {
		cfg.Sim.Realtime = realtime
	}
	return cfg, nil
}

func storeFor(cmd *cobra.Command) *storage.Store {
	dir := dataDir
	if !cmd.Flags().Changed("data") {
		if cfg, err := loadConfig(cmd); err == nil {
			dir = cfg.DataDir
		}
	}
	return storage.New(dir)
}

func listSessions(cmd *cobra.Command, args []string) error {
	runs, err := storeFor(cmd).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no sessions found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Backend,
			fmt.Sprintf("%.2fs", run.Duration),
			fmt.Sprintf("%d", run.Sessions),
			fmt.Sprintf("%.2f%%", run.Metrics["error_rms"]),
			fmt.Sprintf("%.0f%%", 100*run.Metrics["in_band"]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "STARTED", "BACKEND", "DURATION", "SESSIONS", "RMS ERR", "IN BAND").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 6 && row >= 0 && row < len(runs):
				if runs[row].Metrics["in_band"] >= 0.9 {
					return goodStyle
				}
				return badStyle
			case col == 0:
				return dimStyle
			default:
				return cellStyle
			}
		})
	fmt.Println(t)
	return nil
}

func exportSession(cmd *cobra.Command, args []string) error {
	st := storeFor(cmd)

	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		id, err := st.Latest()
		if err != nil {
			return err
		}
		runID = id
	}

	return st.Export(os.Stdout, runID, exportFormat)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
