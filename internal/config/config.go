// Package config loads the immutable run configuration from flags,
// environment variables, and an optional YAML file via spf13/viper, as a
// single read-only struct rather than mutable globals.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// PrefixPolicy selects how much of a vehicle's previous order must be
// replayed verbatim by the feasibility search.
type PrefixPolicy string

const (
	PolicyFull       PrefixPolicy = "FULL"
	PolicyFixOnboard PrefixPolicy = "FIX_ONBOARD"
	PolicyFixPrefix  PrefixPolicy = "FIX_PREFIX"
)

// Objective selects the feasibility search's cost function.
type Objective string

const (
	ObjectiveVTT   Objective = "CTSP_VTT"
	ObjectiveDelay Objective = "CTSP_DELAY"
)

// AssignmentObjective selects the solver's objective mode.
type AssignmentObjective string

const (
	AssignmentServiceRate AssignmentObjective = "AO_SERVICERATE"
	AssignmentRMT         AssignmentObjective = "AO_RMT"
)

// Config is the immutable, fully-resolved run configuration, threaded
// through the core rather than read from process-wide mutable state.
type Config struct {
	DataRoot          string `mapstructure:"dataroot"`
	ResultsDirectory  string `mapstructure:"results_directory"`
	TimeFile          string `mapstructure:"timefile"`
	DistFile          string `mapstructure:"distfile"`
	EdgeCostFile      string `mapstructure:"edgecost_file"`
	RequestDataFile   string `mapstructure:"request_data_file"`
	VehicleDataFile   string `mapstructure:"vehicle_data_file"`
	LogFile           string `mapstructure:"log_file"`

	VehicleLimit int `mapstructure:"vehicle_limit"`
	CarSize      int `mapstructure:"carsize"` // >0 overrides per-row vehicle capacity

	MaxWaiting int `mapstructure:"max_waiting"`
	MaxDetour  int `mapstructure:"max_detour"`
	MaxNew     int `mapstructure:"max_new"`

	InitialTime string `mapstructure:"initial_time"`
	FinalTime   string `mapstructure:"final_time"`
	Interval    int    `mapstructure:"interval"`

	CTSP             PrefixPolicy        `mapstructure:"ctsp"`
	CTSPObjective    Objective           `mapstructure:"ctsp_objective"`
	Assignment       AssignmentObjective `mapstructure:"assignment_objective"`
	LPLimitValue     int                 `mapstructure:"lp_limitvalue"`
	Alpha            float64             `mapstructure:"alpha"`

	MissCost  float64 `mapstructure:"miss_cost"`
	RMTReward float64 `mapstructure:"rmt_reward"`

	RTVTimeLimitMS     int     `mapstructure:"rtv_timelimit"`
	SolverTimeLimitMS  int     `mapstructure:"solver_timelimit"`
	SolverMIPGap       float64 `mapstructure:"solver_mipgap"`
	PruningRVK         int     `mapstructure:"pruning_rv_k"`
	PruningRRK         int     `mapstructure:"pruning_rr_k"`

	DwellPickup int `mapstructure:"dwell_pickup"`
	DwellAlight int `mapstructure:"dwell_alight"`

	LastMinuteService bool `mapstructure:"last_minute_service"`
	Threads           int  `mapstructure:"threads"`
}

// Defaults mirrors global_var.py's module-level defaults.
func Defaults() Config {
	return Config{
		DataRoot:         "./data",
		ResultsDirectory: "./results",
		TimeFile:         "map/times.csv",
		DistFile:         "map/times.csv",
		EdgeCostFile:     "map/edges.csv",
		RequestDataFile:  "requests/requests_small.csv",
		VehicleDataFile:  "vehicles/vehicles_small.csv",
		LogFile:          "results.log",

		VehicleLimit: 1000,
		CarSize:      4,

		MaxWaiting: 300,
		MaxDetour:  600,
		MaxNew:     8,

		InitialTime: "00:00:00",
		FinalTime:   "01:00:00",
		Interval:    60,

		CTSP:          PolicyFixOnboard,
		CTSPObjective: ObjectiveVTT,
		Assignment:    AssignmentServiceRate,
		LPLimitValue:  8,
		Alpha:         0.5,

		MissCost:  10_000_000,
		RMTReward: 100,

		RTVTimeLimitMS:    0,
		SolverTimeLimitMS: 5000,
		SolverMIPGap:      0.02,
		PruningRVK:        0,
		PruningRRK:        0,

		DwellPickup: 0,
		DwellAlight: 0,

		LastMinuteService: false,
		Threads:           1,
	}
}

// Load builds a Config from defaults, an optional config file, environment
// variables (RIDEPOOL_* prefix), and flag overrides already bound into v.
// Grounded on niceyeti-tabular's and shivamshaw23-Hintro's viper setup.
func Load(v *viper.Viper, configFile string) (Config, error) {
	d := Defaults()
	v.SetEnvPrefix("RIDEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultsFromStruct(v, d)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaultsFromStruct(v *viper.Viper, d Config) {
	v.SetDefault("dataroot", d.DataRoot)
	v.SetDefault("results_directory", d.ResultsDirectory)
	v.SetDefault("timefile", d.TimeFile)
	v.SetDefault("distfile", d.DistFile)
	v.SetDefault("edgecost_file", d.EdgeCostFile)
	v.SetDefault("request_data_file", d.RequestDataFile)
	v.SetDefault("vehicle_data_file", d.VehicleDataFile)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("vehicle_limit", d.VehicleLimit)
	v.SetDefault("carsize", d.CarSize)
	v.SetDefault("max_waiting", d.MaxWaiting)
	v.SetDefault("max_detour", d.MaxDetour)
	v.SetDefault("max_new", d.MaxNew)
	v.SetDefault("initial_time", d.InitialTime)
	v.SetDefault("final_time", d.FinalTime)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("ctsp", string(d.CTSP))
	v.SetDefault("ctsp_objective", string(d.CTSPObjective))
	v.SetDefault("assignment_objective", string(d.Assignment))
	v.SetDefault("lp_limitvalue", d.LPLimitValue)
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("miss_cost", d.MissCost)
	v.SetDefault("rmt_reward", d.RMTReward)
	v.SetDefault("rtv_timelimit", d.RTVTimeLimitMS)
	v.SetDefault("solver_timelimit", d.SolverTimeLimitMS)
	v.SetDefault("solver_mipgap", d.SolverMIPGap)
	v.SetDefault("pruning_rv_k", d.PruningRVK)
	v.SetDefault("pruning_rr_k", d.PruningRRK)
	v.SetDefault("dwell_pickup", d.DwellPickup)
	v.SetDefault("dwell_alight", d.DwellAlight)
	v.SetDefault("last_minute_service", d.LastMinuteService)
	v.SetDefault("threads", d.Threads)
}
