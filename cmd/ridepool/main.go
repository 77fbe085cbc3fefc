// Command ridepool runs the ride-pooling batch-assignment simulator:
// tick-by-tick request admission, shareability/RTV graph construction,
// assignment solving, and vehicle movement. Structured as an urfave/cli/v2
// app with subcommands since this program has more than one run mode:
// interactive, headless batch, and HTTP-served.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/jwmdev/ridepool/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "ridepool",
		Usage: "discrete-time ride-pooling batch-assignment simulator",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the simulator with per-tick console and CSV reporting",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					cfg, log, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer log.Sync()
					return runLoop(c.Context, cfg, log, nil)
				},
			},
			{
				Name:  "batch",
				Usage: "run headless: log only warnings and errors (per-tick blocks and the final summary are not logged), still write the per-tick CSV",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					cfg, log, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer log.Sync()
					quiet := log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
					return runLoop(c.Context, cfg, quiet, nil)
				},
			},
			{
				Name:  "serve",
				Usage: "run the simulator while exposing /api/tick and /api/report over HTTP",
				Flags: append(commonFlags(), &cli.IntFlag{Name: "port", Value: 8089, Usage: "HTTP listen port"}),
				Action: func(c *cli.Context) error {
					cfg, log, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer log.Sync()
					return serveAndRun(c.Context, cfg, log, c.Int("port"))
				},
			},
			recomputeDistancesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ridepool:", err)
		os.Exit(1)
	}
}

// commonFlags is the knob list every run mode accepts, bound into viper by
// bootstrap rather than read as process-wide globals.
func commonFlags() []cli.Flag {
	d := config.Defaults()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "optional YAML config file"},
		&cli.StringFlag{Name: "dataroot", Value: d.DataRoot},
		&cli.StringFlag{Name: "results-directory", Value: d.ResultsDirectory},
		&cli.StringFlag{Name: "timefile", Value: d.TimeFile},
		&cli.StringFlag{Name: "distfile", Value: d.DistFile},
		&cli.StringFlag{Name: "edgecost-file", Value: d.EdgeCostFile},
		&cli.StringFlag{Name: "request-data-file", Value: d.RequestDataFile},
		&cli.StringFlag{Name: "vehicle-data-file", Value: d.VehicleDataFile},
		&cli.StringFlag{Name: "log-file", Value: d.LogFile},
		&cli.IntFlag{Name: "vehicle-limit", Value: d.VehicleLimit},
		&cli.IntFlag{Name: "carsize", Value: d.CarSize},
		&cli.IntFlag{Name: "max-waiting", Value: d.MaxWaiting},
		&cli.IntFlag{Name: "max-detour", Value: d.MaxDetour},
		&cli.IntFlag{Name: "max-new", Value: d.MaxNew},
		&cli.StringFlag{Name: "initial-time", Value: d.InitialTime},
		&cli.StringFlag{Name: "final-time", Value: d.FinalTime},
		&cli.IntFlag{Name: "interval", Value: d.Interval},
		&cli.StringFlag{Name: "ctsp", Value: string(d.CTSP)},
		&cli.StringFlag{Name: "ctsp-objective", Value: string(d.CTSPObjective)},
		&cli.StringFlag{Name: "assignment-objective", Value: string(d.Assignment)},
		&cli.IntFlag{Name: "lp-limitvalue", Value: d.LPLimitValue},
		&cli.Float64Flag{Name: "alpha", Value: d.Alpha},
		&cli.Float64Flag{Name: "miss-cost", Value: d.MissCost},
		&cli.Float64Flag{Name: "rmt-reward", Value: d.RMTReward},
		&cli.IntFlag{Name: "rtv-timelimit", Value: d.RTVTimeLimitMS},
		&cli.IntFlag{Name: "solver-timelimit", Value: d.SolverTimeLimitMS},
		&cli.Float64Flag{Name: "solver-mipgap", Value: d.SolverMIPGap},
		&cli.IntFlag{Name: "pruning-rv-k", Value: d.PruningRVK},
		&cli.IntFlag{Name: "pruning-rr-k", Value: d.PruningRRK},
		&cli.IntFlag{Name: "dwell-pickup", Value: d.DwellPickup},
		&cli.IntFlag{Name: "dwell-alight", Value: d.DwellAlight},
		&cli.BoolFlag{Name: "last-minute-service", Value: d.LastMinuteService},
		&cli.IntFlag{Name: "threads", Value: d.Threads},
	}
}

// bootstrap binds the invoked command's flags into a fresh viper instance,
// loads the Config (flags override file override defaults), and constructs
// the zap logger the rest of the process uses.
func bootstrap(c *cli.Context) (config.Config, *zap.Logger, error) {
	v := viper.New()
	// Only flags the caller actually set are pushed into viper; unset
	// flags fall through to config.Load's own defaults/env/file layers
	// rather than clobbering them with the cli package's flag defaults.
	strFlag := func(flag, key string) {
		if c.IsSet(flag) {
			v.Set(key, c.String(flag))
		}
	}
	intFlag := func(flag, key string) {
		if c.IsSet(flag) {
			v.Set(key, c.Int(flag))
		}
	}
	floatFlag := func(flag, key string) {
		if c.IsSet(flag) {
			v.Set(key, c.Float64(flag))
		}
	}
	boolFlag := func(flag, key string) {
		if c.IsSet(flag) {
			v.Set(key, c.Bool(flag))
		}
	}

	strFlag("dataroot", "dataroot")
	strFlag("results-directory", "results_directory")
	strFlag("timefile", "timefile")
	strFlag("distfile", "distfile")
	strFlag("edgecost-file", "edgecost_file")
	strFlag("request-data-file", "request_data_file")
	strFlag("vehicle-data-file", "vehicle_data_file")
	strFlag("log-file", "log_file")
	intFlag("vehicle-limit", "vehicle_limit")
	intFlag("carsize", "carsize")
	intFlag("max-waiting", "max_waiting")
	intFlag("max-detour", "max_detour")
	intFlag("max-new", "max_new")
	strFlag("initial-time", "initial_time")
	strFlag("final-time", "final_time")
	intFlag("interval", "interval")
	strFlag("ctsp", "ctsp")
	strFlag("ctsp-objective", "ctsp_objective")
	strFlag("assignment-objective", "assignment_objective")
	intFlag("lp-limitvalue", "lp_limitvalue")
	floatFlag("alpha", "alpha")
	floatFlag("miss-cost", "miss_cost")
	floatFlag("rmt-reward", "rmt_reward")
	intFlag("rtv-timelimit", "rtv_timelimit")
	intFlag("solver-timelimit", "solver_timelimit")
	floatFlag("solver-mipgap", "solver_mipgap")
	intFlag("pruning-rv-k", "pruning_rv_k")
	intFlag("pruning-rr-k", "pruning_rr_k")
	intFlag("dwell-pickup", "dwell_pickup")
	intFlag("dwell-alight", "dwell_alight")
	boolFlag("last-minute-service", "last_minute_service")
	intFlag("threads", "threads")

	cfg, err := config.Load(v, c.String("config"))
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("ridepool: %w", err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("ridepool: building logger: %w", err)
	}
	return cfg, log, nil
}
