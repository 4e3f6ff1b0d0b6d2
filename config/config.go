// Package config loads the settings of a simulation run from defaults, a
// YAML file, a .env file, and PKTSIM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/simulation"
)

// EnvPrefix is the prefix of every environment variable read by ApplyEnv.
const EnvPrefix = "PKTSIM_"

// NodeConfig describes one initial node.
type NodeConfig struct {
	Address  string `yaml:"address"`
	Capacity int    `yaml:"capacity"`
}

// Config holds the settings of a simulation run.
type Config struct {
	TickInterval         time.Duration `yaml:"tick_interval"`
	PresentationInterval time.Duration `yaml:"presentation_interval"`

	DefaultCapacity int          `yaml:"default_capacity"`
	InitialNodes    []NodeConfig `yaml:"initial_nodes"`
	MinPacketSize   int          `yaml:"min_packet_size"`
	MaxPacketSize   int          `yaml:"max_packet_size"`
	DrainPolicy     string       `yaml:"drain_policy"`
	PacketLogSize   int          `yaml:"packet_log_size"`
	RandomStream    string       `yaml:"random_stream"`

	MonitorEnabled bool   `yaml:"monitor_enabled"`
	MonitorPort    int    `yaml:"monitor_port"`
	RecordPath     string `yaml:"record_path"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the settings of the classic two-node setup.
func Default() Config {
	return Config{
		TickInterval:         time.Second,
		PresentationInterval: 100 * time.Millisecond,
		DefaultCapacity:      5,
		InitialNodes: []NodeConfig{
			{Address: "192.168.1.1"},
			{Address: "192.168.1.2"},
		},
		MinPacketSize:  50,
		MaxPacketSize:  150,
		DrainPolicy:    network.DrainOwnerMatch.String(),
		PacketLogSize:  1024,
		RandomStream:   "pktsim",
		MonitorEnabled: true,
		LogLevel:       "info",
	}
}

// Load builds a config from the defaults, the optional YAML file at path,
// and the environment, then validates it. An empty path skips the file and
// a missing env file is ignored.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(envFile); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path onto the config. Since JSON is a
// subset of YAML, JSON files are accepted too.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

// ApplyEnv loads envFile into the process environment, without overriding
// variables that are already set, and overlays every PKTSIM_* variable onto
// the config.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var errs []error

	env := func(name string, apply func(string) error) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}

		if err := apply(v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}

	env("TICK_INTERVAL", durationVar(&c.TickInterval))
	env("PRESENTATION_INTERVAL", durationVar(&c.PresentationInterval))
	env("DEFAULT_CAPACITY", intVar(&c.DefaultCapacity))
	env("MIN_PACKET_SIZE", intVar(&c.MinPacketSize))
	env("MAX_PACKET_SIZE", intVar(&c.MaxPacketSize))
	env("DRAIN_POLICY", stringVar(&c.DrainPolicy))
	env("PACKET_LOG_SIZE", intVar(&c.PacketLogSize))
	env("RANDOM_STREAM", stringVar(&c.RandomStream))
	env("MONITOR_ENABLED", boolVar(&c.MonitorEnabled))
	env("MONITOR_PORT", intVar(&c.MonitorPort))
	env("RECORD_PATH", stringVar(&c.RecordPath))
	env("LOG_LEVEL", stringVar(&c.LogLevel))
	env("LOG_JSON", boolVar(&c.LogJSON))
	env("NODES", nodesVar(&c.InitialNodes))

	return errors.Join(errs...)
}

func durationVar(d *time.Duration) func(string) error {
	return func(s string) error {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}

		*d = v

		return nil
	}
}

func intVar(i *int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}

		*i = v

		return nil
	}
}

func boolVar(b *bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}

		*b = v

		return nil
	}
}

func stringVar(p *string) func(string) error {
	return func(s string) error {
		*p = s
		return nil
	}
}

// nodesVar parses a comma separated list of address[:capacity] items.
func nodesVar(nodes *[]NodeConfig) func(string) error {
	return func(s string) error {
		var parsed []NodeConfig

		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}

			n := NodeConfig{Address: item}

			if addr, capacity, found := strings.Cut(item, ":"); found {
				v, err := strconv.Atoi(capacity)
				if err != nil {
					return fmt.Errorf("node %q: %w", item, err)
				}

				n = NodeConfig{Address: addr, Capacity: v}
			}

			parsed = append(parsed, n)
		}

		*nodes = parsed

		return nil
	}
}

// Validate reports every setting that cannot start a simulation.
func (c Config) Validate() error {
	var errs []error

	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be positive"))
	}

	if c.PresentationInterval <= 0 {
		errs = append(errs,
			errors.New("presentation interval must be positive"))
	}

	if c.DefaultCapacity <= 0 {
		errs = append(errs, fmt.Errorf("default capacity: %w",
			network.ErrInvalidCapacity))
	}

	if c.MinPacketSize < 0 || c.MaxPacketSize <= c.MinPacketSize {
		errs = append(errs, fmt.Errorf("invalid packet size range [%d, %d)",
			c.MinPacketSize, c.MaxPacketSize))
	}

	if c.PacketLogSize < 0 {
		errs = append(errs, errors.New("packet log size must not be negative"))
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid monitor port %d",
			c.MonitorPort))
	}

	if _, err := network.ParseDrainPolicy(c.DrainPolicy); err != nil {
		errs = append(errs, err)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool)
	for _, n := range c.InitialNodes {
		if n.Address != "" && seen[n.Address] {
			errs = append(errs, fmt.Errorf("node %s: %w",
				n.Address, network.ErrDuplicateAddress))
		}

		seen[n.Address] = true
	}

	return errors.Join(errs...)
}

// SimulationBuilder turns the config into a simulation builder.
func (c Config) SimulationBuilder() (simulation.Builder, error) {
	policy, err := network.ParseDrainPolicy(c.DrainPolicy)
	if err != nil {
		return simulation.Builder{}, err
	}

	nodes := make([]simulation.NodeSpec, len(c.InitialNodes))
	for i, n := range c.InitialNodes {
		nodes[i] = simulation.NodeSpec{
			Address:  network.Address(n.Address),
			Capacity: n.Capacity,
		}
	}

	return simulation.MakeBuilder().
		WithDefaultCapacity(c.DefaultCapacity).
		WithInitialNodes(nodes...).
		WithDrainPolicy(policy).
		WithPacketSizeRange(c.MinPacketSize, c.MaxPacketSize).
		WithPacketLogSize(c.PacketLogSize).
		WithRandomStream(c.RandomStream), nil
}
