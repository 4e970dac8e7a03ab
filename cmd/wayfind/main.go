package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"ar-wayfinding/way_nav"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool

	liveAddr   string
	outputAddr string
	apiEnabled bool

	routeFrom  string
	routeSpeed float64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "wayfind",
	Short:         "Indoor AR wayfinding core",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live tick loop over UDP",
	RunE:  runLive,
}

var routeCmd = &cobra.Command{
	Use:   "route [destination]",
	Short: "Plan a route offline and print the turn cues along it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List catalog targets",
	RunE:  listTargets,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML or JSON config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd.Flags().StringVar(&liveAddr, "live-addr", "", "override live UDP listen addr (host:port)")
	runCmd.Flags().StringVar(&outputAddr, "output-addr", "", "override cue UDP addr (host:port)")
	runCmd.Flags().BoolVar(&apiEnabled, "api", false, "enable the HTTP command API")

	routeCmd.Flags().StringVar(&routeFrom, "from", "0,0,0", "start position x,y,z")
	routeCmd.Flags().Float64Var(&routeSpeed, "speed", 1.2, "walking speed in m/s")

	rootCmd.AddCommand(runCmd, routeCmd, targetsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := way_nav.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if liveAddr != "" {
		cfg.Live.UDPAddr = liveAddr
	}
	if outputAddr != "" {
		cfg.Output.UDPAddr = outputAddr
	}
	if apiEnabled {
		cfg.API.Enabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := way_nav.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("wayfind running",
		zap.String("live", cfg.Live.UDPAddr),
		zap.String("output", cfg.Output.UDPAddr),
		zap.Float64("hz", cfg.Hz),
	)
	return way_nav.RunLive(ctx, cfg, rt, logger)
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := way_nav.LoadConfig(configPath)
	if err != nil {
		return err
	}
	start, err := parseVec(routeFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if routeSpeed <= 0 {
		return fmt.Errorf("--speed must be > 0")
	}

	// Offline walks happen in world coordinates with no marker scanning.
	cfg.Recenter.ScanOnStart = false
	cfg.Recenter.DefaultFrame = way_nav.FramePlacement{}

	rt, err := way_nav.NewRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	cues, err := way_nav.SimulateRoute(rt.Navigator, start, args[0], way_nav.SimulationConfig{
		Hz:    cfg.Hz,
		Speed: routeSpeed,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range cues {
		fmt.Fprintln(out, way_nav.FormatCue(c))
	}
	fmt.Fprintf(out, "arrived at %s\n", args[0])
	return nil
}

func listTargets(cmd *cobra.Command, args []string) error {
	cfg, err := way_nav.LoadConfig(configPath)
	if err != nil {
		return err
	}
	rt, err := way_nav.NewRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.Catalog == nil {
		return fmt.Errorf("no catalog configured")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBUILDING\tFLOOR\tX\tY\tZ")
	for _, rec := range rt.Catalog.Records() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n",
			rec.Name, rec.Building, rec.FloorNumber, rec.Position.X, rec.Position.Y, rec.Position.Z)
	}
	return w.Flush()
}

func parseVec(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}
