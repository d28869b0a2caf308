package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Writer types understood by the writer factory.
const (
	WriterText       = "text"
	WriterJSON       = "json"
	WriterCSV        = "csv"
	WriterClickHouse = "clickhouse"
	WriterNATS       = "nats"
)

// Defaults applied by LoadConfig when a field is left empty.
const (
	DefaultPacketSize  = 1000
	DefaultDuration    = 30 * time.Second
	DefaultEventBuffer = 1024
	DefaultListenAddr  = ":8080"
	DefaultSubject     = "wifi.exports"
	DefaultRecordQueue = 10000
)

// Event recording encodings.
const (
	EncodingJSONL = "jsonl"
	EncodingPcap  = "pcap"
)

// RunConfig describes the experiment being measured.
type RunConfig struct {
	Experiment string            `yaml:"experiment"`
	Strategy   string            `yaml:"strategy"`
	Input      string            `yaml:"input"`
	RunID      string            `yaml:"run_id"`
	Duration   string            `yaml:"duration"`
	PacketSize int               `yaml:"packet_size"`
	PacketNum  int               `yaml:"packet_num"`
	Hub        string            `yaml:"hub"`
	Stations   []string          `yaml:"stations"`
	Metadata   map[string]string `yaml:"metadata"`
}

// EngineConfig tunes the event manager.
type EngineConfig struct {
	EventBuffer int `yaml:"event_buffer"`
}

// TextConfig configures the plain-text report writer.
type TextConfig struct {
	RootPath string `yaml:"root_path"`
}

// JSONConfig configures the JSON document writer.
type JSONConfig struct {
	RootPath string `yaml:"root_path"`
	Indent   bool   `yaml:"indent"`
}

// CSVConfig configures the CSV export writer.
type CSVConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the NATS connection settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WriterDef defines a single writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextConfig       `yaml:"text"`
	JSON       JSONConfig       `yaml:"json"`
	CSV        CSVConfig        `yaml:"csv"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
}

// RecordConfig configures the event recorder, which persists every event
// fed to a run.
type RecordConfig struct {
	Path      string `yaml:"path"`
	Encoding  string `yaml:"encoding"`
	QueueSize int    `yaml:"queue_size"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Run     RunConfig    `yaml:"run"`
	Engine  EngineConfig `yaml:"engine"`
	Writers []WriterDef  `yaml:"writers"`
	Record  RecordConfig `yaml:"record"`
	API     APIConfig    `yaml:"api"`
	NATS    NATSConfig   `yaml:"nats"`
	Log     LogConfig    `yaml:"log"`
}

// LoadConfig reads the configuration from a YAML file, fills defaults and
// validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config YAML")
	}
	cfg.SetDefaults(time.Now())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every empty field that has a default.
func (c *Config) SetDefaults(now time.Time) {
	if c.Run.RunID == "" {
		c.Run.RunID = fmt.Sprintf("run-%d", now.Unix())
	}
	if c.Run.PacketSize == 0 {
		c.Run.PacketSize = DefaultPacketSize
	}
	if c.Run.Duration == "" {
		c.Run.Duration = DefaultDuration.String()
	}
	if c.Engine.EventBuffer == 0 {
		c.Engine.EventBuffer = DefaultEventBuffer
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultSubject
	}
	for i := range c.Writers {
		if c.Writers[i].Type == WriterNATS {
			if c.Writers[i].NATS.URL == "" {
				c.Writers[i].NATS.URL = c.NATS.URL
			}
			if c.Writers[i].NATS.Subject == "" {
				c.Writers[i].NATS.Subject = c.NATS.Subject
			}
		}
	}
	if c.Record.Encoding == "" {
		c.Record.Encoding = EncodingJSONL
	}
	if c.Record.QueueSize == 0 {
		c.Record.QueueSize = DefaultRecordQueue
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the run description and the writer list.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Run.Duration)
	if err != nil {
		return errors.Wrap(err, "invalid run duration")
	}
	if d <= 0 {
		return errors.New("run duration must be a positive duration")
	}
	if c.Run.PacketSize < 0 {
		return errors.Errorf("invalid packet size %d", c.Run.PacketSize)
	}
	if c.Engine.EventBuffer < 0 {
		return errors.Errorf("invalid event buffer %d", c.Engine.EventBuffer)
	}
	if _, err := net.ParseMAC(c.Run.Hub); err != nil {
		return errors.Wrapf(err, "invalid hub address %q", c.Run.Hub)
	}
	for i, s := range c.Run.Stations {
		if _, err := net.ParseMAC(s); err != nil {
			return errors.Wrapf(err, "invalid address %q for station %d", s, i+1)
		}
	}
	switch c.Record.Encoding {
	case EncodingJSONL, EncodingPcap:
	default:
		return errors.Errorf("unknown record encoding '%s'", c.Record.Encoding)
	}
	for _, w := range c.Writers {
		switch w.Type {
		case WriterText, WriterJSON, WriterCSV, WriterClickHouse, WriterNATS:
		default:
			return errors.Errorf("unknown writer type '%s'", w.Type)
		}
	}
	return nil
}

// RunDuration returns the parsed run duration. Validate guarantees it parses.
func (c *Config) RunDuration() time.Duration {
	d, _ := time.ParseDuration(c.Run.Duration)
	return d
}

// HubAddr returns the parsed hub address.
func (c *Config) HubAddr() net.HardwareAddr {
	addr, _ := net.ParseMAC(c.Run.Hub)
	return addr
}

// StationAddrs returns the parsed station addresses; element i is station i+1.
func (c *Config) StationAddrs() []net.HardwareAddr {
	out := make([]net.HardwareAddr, 0, len(c.Run.Stations))
	for _, s := range c.Run.Stations {
		addr, _ := net.ParseMAC(s)
		out = append(out, addr)
	}
	return out
}

// ClickHouse returns the first enabled ClickHouse writer config, if any.
func (c *Config) ClickHouse() (*ClickHouseConfig, bool) {
	for i := range c.Writers {
		if c.Writers[i].Enabled && c.Writers[i].Type == WriterClickHouse {
			return &c.Writers[i].ClickHouse, true
		}
	}
	return nil, false
}
