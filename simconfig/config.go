// Package simconfig loads the nested YAML configuration that drives one
// simulation run, following the strict-decode convention the rest of the
// codebase uses for its own configuration files.
package simconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fedsched/metasim/autoscaler"
	"github.com/fedsched/metasim/scheduler"
)

// Simulation holds the top-level run parameters.
type Simulation struct {
	NTicks       int64  `yaml:"N_TICKS"`
	Scheduler    string `yaml:"Scheduler"`
	Autoscaler   string `yaml:"Autoscaler"`
	ClusterSetup string `yaml:"ClusterSetup"`
	GWF          string `yaml:"GWF"`
	OutputDir    string `yaml:"OUTPUT_DIR"`
	LogFile      string `yaml:"LOG_FILE"`
	DBFile       string `yaml:"DB_FILE"`
}

// CentralQueue holds the admission pipeline's own tunables.
type CentralQueue struct {
	NTicksMonitorSiteStatus int64 `yaml:"N_TICKS_MONITOR_SITE_STATUS"`
}

// Autoscaler holds the elasticity policy's tunables, shared across every
// concrete strategy even though only some use all of them.
type Autoscaler struct {
	NTicksPerEvaluate  int64   `yaml:"N_TICKS_PER_EVALUATE"`
	HistPercentile     float64 `yaml:"HIST_PERCENTILE"`
	TokenTimeThreshold int64   `yaml:"TOKEN_TIME_THRESHOLD"`
	TokenMaxCapacity   int64   `yaml:"TOKEN_MAX_CAPACITY"`
	ServerSpeed        float64 `yaml:"SERVER_SPEED"`
}

// SiteMonitor holds per-site monitoring tunables.
type SiteMonitor struct {
	NTicksBetweenMonitoring int64 `yaml:"N_TICKS_BETWEEN_MONITORING"`
	AmountOfDaysHistory     int64 `yaml:"AMOUNT_OF_DAYS_HISTORY"`
	AmountOfMinutesToTrack  int64 `yaml:"AMOUNT_OF_MINUTES_TO_TRACK"`
}

// SystemMonitor holds the aggregate monitor's tunables.
type SystemMonitor struct {
	NTicksUpdateStatistics int64 `yaml:"N_TICKS_UPDATE_STATISTICS"`
}

// Config is the full nested configuration tree for one run. All top-level
// sections are listed here to satisfy KnownFields(true) strict parsing —
// an unrecognized key is a configuration error, not silently ignored.
type Config struct {
	Simulation    Simulation    `yaml:"simulation"`
	CentralQueue  CentralQueue  `yaml:"central_queue"`
	Autoscaler    Autoscaler    `yaml:"autoscaler"`
	SiteMonitor   SiteMonitor   `yaml:"site_monitor"`
	SystemMonitor SystemMonitor `yaml:"system_monitor"`
}

// Default returns a Config with every optional key filled to the
// reference's own defaults, mirroring the Python configobj schema in
// original_source/core/SystemSim.py. Simulation.NTicks is left at zero,
// since it has no sensible default and Validate rejects it.
func Default() Config {
	return Config{
		CentralQueue: CentralQueue{NTicksMonitorSiteStatus: 10},
		Autoscaler: Autoscaler{
			NTicksPerEvaluate:  60,
			HistPercentile:     90,
			TokenTimeThreshold: 60,
			TokenMaxCapacity:   10000,
			ServerSpeed:        1,
		},
		SiteMonitor: SiteMonitor{
			NTicksBetweenMonitoring: 60,
			AmountOfDaysHistory:     7,
			AmountOfMinutesToTrack:  60,
		},
		SystemMonitor: SystemMonitor{NTicksUpdateStatistics: 60},
	}
}

// Load reads and strictly decodes the YAML file at path over Default(),
// then validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("simconfig: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("simconfig: %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required keys and enumerated values spec.md §6
// names, returning the first problem found.
func (c Config) Validate() error {
	if c.Simulation.NTicks <= 0 {
		return fmt.Errorf("simconfig: simulation.N_TICKS is required and must be positive")
	}
	if !scheduler.IsValidAllocatorName(c.Simulation.Scheduler) {
		return fmt.Errorf("simconfig: unknown simulation.Scheduler %q (valid: %v)", c.Simulation.Scheduler, scheduler.ValidAllocatorNames())
	}
	if !autoscaler.IsValidStrategyName(c.Simulation.Autoscaler) {
		return fmt.Errorf("simconfig: unknown simulation.Autoscaler %q (valid: %v)", c.Simulation.Autoscaler, autoscaler.ValidStrategyNames())
	}
	if c.Simulation.ClusterSetup == "" {
		return fmt.Errorf("simconfig: simulation.ClusterSetup is required")
	}
	return nil
}
