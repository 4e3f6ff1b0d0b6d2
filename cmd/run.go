package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/pktsim/config"
	"github.com/sarchlab/pktsim/datarecording"
	"github.com/sarchlab/pktsim/logging"
	"github.com/sarchlab/pktsim/monitoring"
	"github.com/sarchlab/pktsim/sim/hooking"
	"github.com/sarchlab/pktsim/simulation"
)

type runOptions struct {
	configFile  string
	envFile     string
	ticks       uint64
	maxTicks    uint64
	openBrowser bool
	noMonitor   bool

	cfg config.Config
}

var runOpts = runOptions{cfg: config.Default()}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: `Run a simulation. By default the simulation ticks once per ` +
		`second until interrupted, and a monitoring server shows the node ` +
		`loads. With --ticks, the given number of ticks run back to back ` +
		`and the final statistics are printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags(), &runOpts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runSimulation(ctx, cfg, &runOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()
	d := config.Default()

	f.StringVarP(&runOpts.configFile, "config", "c", "",
		"YAML or JSON config file")
	f.StringVar(&runOpts.envFile, "env-file", ".env",
		"file with PKTSIM_* variables, ignored if missing")
	f.Uint64Var(&runOpts.ticks, "ticks", 0,
		"run this many ticks without timers, print statistics, and exit")
	f.Uint64Var(&runOpts.maxTicks, "max-ticks", 0,
		"stop a timed run after this many ticks")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitor in a web browser")
	f.BoolVar(&runOpts.noMonitor, "no-monitor", false,
		"do not start the monitoring server")

	f.DurationVar(&runOpts.cfg.TickInterval, "tick-interval",
		d.TickInterval, "simulation tick interval")
	f.DurationVar(&runOpts.cfg.PresentationInterval, "presentation-interval",
		d.PresentationInterval, "load board refresh interval")
	f.IntVar(&runOpts.cfg.DefaultCapacity, "capacity",
		d.DefaultCapacity, "buffer capacity of new nodes")
	f.StringVar(&runOpts.cfg.DrainPolicy, "drain-policy",
		d.DrainPolicy, "owner-match or on-delivery")
	f.IntVar(&runOpts.cfg.PacketLogSize, "packet-log-size",
		d.PacketLogSize, "number of packet log entries kept, 0 keeps all")
	f.IntVar(&runOpts.cfg.MonitorPort, "port",
		d.MonitorPort, "monitoring server port, 0 picks a random port")
	f.StringVar(&runOpts.cfg.RecordPath, "record",
		d.RecordPath, "record the trace into this SQLite database")
	f.StringVar(&runOpts.cfg.LogLevel, "log-level",
		d.LogLevel, "log level")
	f.BoolVar(&runOpts.cfg.LogJSON, "log-json",
		d.LogJSON, "log in JSON")

	rootCmd.AddCommand(runCmd)
}

// loadConfig layers the config file and the environment under the flags
// that were set explicitly.
func loadConfig(flags *pflag.FlagSet, opts *runOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configFile, opts.envFile)
	if err != nil {
		return cfg, err
	}

	override := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	override("tick-interval", func() { cfg.TickInterval = opts.cfg.TickInterval })
	override("presentation-interval", func() {
		cfg.PresentationInterval = opts.cfg.PresentationInterval
	})
	override("capacity", func() { cfg.DefaultCapacity = opts.cfg.DefaultCapacity })
	override("drain-policy", func() { cfg.DrainPolicy = opts.cfg.DrainPolicy })
	override("packet-log-size", func() { cfg.PacketLogSize = opts.cfg.PacketLogSize })
	override("port", func() { cfg.MonitorPort = opts.cfg.MonitorPort })
	override("record", func() { cfg.RecordPath = opts.cfg.RecordPath })
	override("log-level", func() { cfg.LogLevel = opts.cfg.LogLevel })
	override("log-json", func() { cfg.LogJSON = opts.cfg.LogJSON })

	if opts.noMonitor {
		cfg.MonitorEnabled = false
	}

	return cfg, cfg.Validate()
}

func runSimulation(
	ctx context.Context,
	cfg config.Config,
	opts *runOptions,
	out io.Writer,
) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	if err != nil {
		return err
	}

	builder, err := cfg.SimulationBuilder()
	if err != nil {
		return err
	}

	sim, err := builder.WithLogger(logger).Build()
	if err != nil {
		return err
	}

	if logger.IsLevelEnabled(logrus.TraceLevel) {
		traceHooks(sim, logger)
	}

	board := simulation.NewLoadBoard()
	board.Refresh(sim)

	if cfg.RecordPath != "" {
		closeRecorder, err := startRecording(sim, cfg.RecordPath)
		if err != nil {
			return err
		}
		defer closeRecorder()
	}

	var monitor *monitoring.Monitor
	if cfg.MonitorEnabled {
		monitor, err = startMonitor(sim, board, cfg, opts, logger)
		if err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), 5*time.Second)
			defer cancel()

			_ = monitor.Shutdown(shutdownCtx)
		}()
	}

	if opts.ticks > 0 {
		runHeadless(ctx, sim, board, monitor, opts.ticks)
		printStats(out, sim.Snapshot())

		return nil
	}

	err = simulation.NewScheduler(sim, board).
		WithTickInterval(cfg.TickInterval).
		WithPresentationInterval(cfg.PresentationInterval).
		WithMaxTicks(opts.maxTicks).
		Run(ctx)

	printStats(out, sim.Snapshot())

	return err
}

// traceHooks logs every packet event and node change of the simulation.
func traceHooks(sim *simulation.Simulation, logger logrus.FieldLogger) {
	hook := hooking.NewLogHook(
		logger.WithField("run", sim.RunID()), logrus.TraceLevel)

	sim.Generator().AcceptHook(hook)
	sim.Router().AcceptHook(hook)
	sim.Drainer().AcceptHook(hook)
	sim.AcceptHook(hooking.PosFilter(hook,
		simulation.HookPosNodeAdded, simulation.HookPosNodeRemoved))
}

func startRecording(
	sim *simulation.Simulation,
	path string,
) (func(), error) {
	writer := datarecording.NewSQLiteWriter(path)
	if err := writer.Init(); err != nil {
		return nil, err
	}

	tracer, err := datarecording.NewSimulationTracer(writer, sim.RunID())
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	tracer.Attach(sim)

	return func() {
		if err := tracer.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Recording incomplete: %v\n", err)
		}

		if err := writer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close recording: %v\n", err)
		}
	}, nil
}

func startMonitor(
	sim *simulation.Simulation,
	board *simulation.LoadBoard,
	cfg config.Config,
	opts *runOptions,
	logger logrus.FieldLogger,
) (*monitoring.Monitor, error) {
	monitor := monitoring.NewMonitor(sim, board).
		WithPortNumber(cfg.MonitorPort).
		WithLogger(logger)

	url, err := monitor.StartServer()
	if err != nil {
		return nil, err
	}

	if opts.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			logger.WithError(err).Warn("failed to open browser")
		}
	}

	return monitor, nil
}

// runHeadless runs the ticks back to back, stopping early if ctx is done.
func runHeadless(
	ctx context.Context,
	sim *simulation.Simulation,
	board *simulation.LoadBoard,
	monitor *monitoring.Monitor,
	ticks uint64,
) {
	if monitor != nil {
		bar := monitor.CreateProgressBar("run "+sim.RunID(), ticks)
		sim.AcceptHook(bar)
		defer monitor.CompleteProgressBar(bar)
	}

	for i := uint64(0); i < ticks; i++ {
		if ctx.Err() != nil {
			break
		}

		sim.Tick()
	}

	board.Refresh(sim)
}

func printStats(out io.Writer, snapshot simulation.Snapshot) {
	s := snapshot.Summary

	fmt.Fprintf(out, "Ticks:     %d\n", snapshot.Tick)
	fmt.Fprintf(out, "Generated: %d\n", s.Generated)
	fmt.Fprintf(out, "Processed: %d\n", s.Processed)
	fmt.Fprintf(out, "Dropped:   %d (%.1f%%)\n", s.Dropped, 100*s.DropRate)
	fmt.Fprintf(out, "Mean load: %.2f (stddev %.2f, max %.2f)\n\n",
		s.MeanLoad, s.LoadStdDev, s.MaxLoad)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tBUFFERED\tCAPACITY\tLOAD")

	for _, n := range snapshot.Nodes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n",
			n.Address, n.Size, n.Capacity, n.Load)
	}

	tw.Flush()
}
