package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// GeneratorConfig defines the simulated time window and the pipeline sizing.
type GeneratorConfig struct {
	StartTime           string `yaml:"start_time"` // RFC3339, empty means now
	Duration            string `yaml:"duration" validate:"required"`
	Tick                string `yaml:"tick" validate:"required"`
	Seed                int64  `yaml:"seed"` // 0 seeds from the clock
	BatchSize           int    `yaml:"batch_size" validate:"gte=0"`
	SizeOfRecordChannel int    `yaml:"size_of_record_channel" validate:"gte=0"`
}

// SamplesConfig locates the per-protocol message template files.
type SamplesConfig struct {
	Dir       string   `yaml:"dir" validate:"required"`
	Protocols []string `yaml:"protocols"` // loaded in addition to those the topology uses
}

// RangeDef selects devices [from, to) for one zone.
type RangeDef struct {
	From int `yaml:"from" validate:"gte=0"`
	To   int `yaml:"to" validate:"gtfield=From"`
}

// ConnectionRuleDef defines one connection of a procedural topology.
type ConnectionRuleDef struct {
	ZoneA     RangeDef           `yaml:"zone_a"`
	ZoneB     RangeDef           `yaml:"zone_b"`
	Protocols map[string]float64 `yaml:"protocols" validate:"required,min=1"`
	Frequency float64            `yaml:"frequency" validate:"gt=0"`
}

// TopologyConfig either names a persisted topology file or describes one procedurally.
type TopologyConfig struct {
	File        string              `yaml:"file"`
	PreserveIDs bool                `yaml:"preserve_ids"`
	DeviceCount int                 `yaml:"device_count" validate:"gte=0"`
	Devices     []string            `yaml:"devices"`
	Connections []ConnectionRuleDef `yaml:"connections" validate:"dive"`
	ExportPath  string              `yaml:"export_path"`
}

type TextConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type PcapConfig struct {
	Path    string `yaml:"path" validate:"required"`
	SnapLen uint32 `yaml:"snap_len"`
}

type MsgpackConfig struct {
	RootPath string `yaml:"root_path" validate:"required"`
	Compress bool   `yaml:"compress"`
}

// ClickHouseConfig holds the connection details for a ClickHouse database.
type ClickHouseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig names the NATS server and subject flow records travel on.
type NATSConfig struct {
	URL     string `yaml:"url" validate:"required"`
	Subject string `yaml:"subject" validate:"required"`
}

// WriterDef defines one output. Only the block matching Type is validated.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextConfig       `yaml:"text"`
	Pcap       PcapConfig       `yaml:"pcap"`
	Msgpack    MsgpackConfig    `yaml:"msgpack"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
}

// APIConfig holds the listen addresses of ics-flowapi.
type APIConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`
	GrpcListenAddr string `yaml:"grpc_listen_addr"`
	// MaxWindow bounds the simulated window a single HTTP request may ask for.
	MaxWindow string `yaml:"max_window"`
	// MaxTicks bounds duration/tick of a single HTTP request.
	MaxTicks int64 `yaml:"max_ticks" validate:"gte=0"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Samples   SamplesConfig   `yaml:"samples"`
	Topology  TopologyConfig  `yaml:"topology"`
	Writers   []WriterDef     `yaml:"writers"`
	Stream    NATSConfig      `yaml:"stream"`
	API       APIConfig       `yaml:"api"`
}

const (
	defaultBatchSize           = 512
	defaultSizeOfRecordChannel = 16
	defaultSnapLen             = 65536
	defaultHTTPListenAddr      = ":8080"
	defaultGRPCListenAddr      = ":9090"
	defaultMaxWindow           = "1h"
	defaultMaxTicks            = 1000000
)

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Generator.BatchSize == 0 {
		c.Generator.BatchSize = defaultBatchSize
	}
	if c.Generator.SizeOfRecordChannel == 0 {
		c.Generator.SizeOfRecordChannel = defaultSizeOfRecordChannel
	}
	if c.Topology.File == "" && c.Topology.DeviceCount == 0 {
		c.Topology.DeviceCount = len(c.Topology.Devices)
	}
	for i := range c.Writers {
		if c.Writers[i].Type == "pcap" && c.Writers[i].Pcap.SnapLen == 0 {
			c.Writers[i].Pcap.SnapLen = defaultSnapLen
		}
	}
	if c.API.HttpListenAddr == "" {
		c.API.HttpListenAddr = defaultHTTPListenAddr
	}
	if c.API.GrpcListenAddr == "" {
		c.API.GrpcListenAddr = defaultGRPCListenAddr
	}
	if c.API.MaxWindow == "" {
		c.API.MaxWindow = defaultMaxWindow
	}
	if c.API.MaxTicks == 0 {
		c.API.MaxTicks = defaultMaxTicks
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c.Generator); err != nil {
		return fmt.Errorf("invalid generator config: %w", err)
	}
	if err := validate.Struct(c.Samples); err != nil {
		return fmt.Errorf("invalid samples config: %w", err)
	}
	if err := validate.Struct(c.Topology); err != nil {
		return fmt.Errorf("invalid topology config: %w", err)
	}
	if c.Topology.File == "" {
		if c.Topology.DeviceCount != len(c.Topology.Devices) {
			return fmt.Errorf("invalid topology config: device_count %d does not match %d device types", c.Topology.DeviceCount, len(c.Topology.Devices))
		}
		if len(c.Topology.Connections) == 0 {
			return fmt.Errorf("invalid topology config: either file or connections must be set")
		}
	}
	for i, w := range c.Writers {
		if err := validateWriter(w); err != nil {
			return fmt.Errorf("invalid writer %d (%s): %w", i, w.Type, err)
		}
	}

	if _, _, _, err := c.Generator.Window(time.Now()); err != nil {
		return fmt.Errorf("invalid generator config: %w", err)
	}
	if err := validate.Struct(c.API); err != nil {
		return fmt.Errorf("invalid api config: %w", err)
	}
	if _, err := time.ParseDuration(c.API.MaxWindow); err != nil {
		return fmt.Errorf("invalid api max_window: %w", err)
	}
	return nil
}

// validateWriter checks the type and, for enabled writers, only the settings
// block that type uses.
func validateWriter(w WriterDef) error {
	if err := validate.Var(w.Type, "required,oneof=text pcap msgpack clickhouse nats"); err != nil {
		return err
	}
	if !w.Enabled {
		return nil
	}
	switch w.Type {
	case "text":
		return validate.Struct(w.Text)
	case "pcap":
		return validate.Struct(w.Pcap)
	case "msgpack":
		return validate.Struct(w.Msgpack)
	case "clickhouse":
		return validate.Struct(w.ClickHouse)
	case "nats":
		return validate.Struct(w.NATS)
	}
	return nil
}

// Window resolves start, tick and end of the simulated window. now is used when
// no start time is configured.
func (g GeneratorConfig) Window(now time.Time) (start time.Time, tick time.Duration, end time.Time, err error) {
	start = now
	if g.StartTime != "" {
		start, err = time.Parse(time.RFC3339, g.StartTime)
		if err != nil {
			return start, 0, start, fmt.Errorf("invalid start_time: %w", err)
		}
	}
	duration, err := time.ParseDuration(g.Duration)
	if err != nil {
		return start, 0, start, fmt.Errorf("invalid duration: %w", err)
	}
	if duration < 0 {
		return start, 0, start, fmt.Errorf("duration must not be negative, got %s", duration)
	}
	tick, err = time.ParseDuration(g.Tick)
	if err != nil {
		return start, 0, start, fmt.Errorf("invalid tick: %w", err)
	}
	if tick <= 0 {
		return start, 0, start, fmt.Errorf("tick must be positive, got %s", tick)
	}
	return start, tick, start.Add(duration), nil
}
