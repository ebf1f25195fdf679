package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	psnet "github.com/shirou/gopsutil/v3/net"
	"gopkg.in/yaml.v3"
)

// DefaultSubnet is used when no subnet is configured and none can be detected.
const DefaultSubnet = "192.168.1.0/24"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Antminer   AntminerConfig   `yaml:"antminer"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Messaging  MessagingConfig  `yaml:"messaging"`
	Display    DisplayConfig    `yaml:"display"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Enabled             *bool   `yaml:"enabled"`
	Host                string  `yaml:"host"`
	Port                int     `yaml:"port"`
	RequestIPHeader     string  `yaml:"request_ip_header"`
	RateLimitPerSec     float64 `yaml:"rate_limit_per_sec"`
	ScanRateLimitPerMin float64 `yaml:"scan_rate_limit_per_min"`
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`
}

// IsEnabled defaults to true when the key is absent.
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ScannerConfig controls discovery and the scan scheduler.
type ScannerConfig struct {
	Subnet                  string        `yaml:"subnet"`
	Port                    int           `yaml:"port"`
	TimeoutMillis           int           `yaml:"timeout_ms"`
	Timeout                 time.Duration `yaml:"-"`
	Concurrency             int           `yaml:"concurrency"`
	MinPrefixLen            int           `yaml:"min_prefix_len"`
	PollIntervalMillis      int           `yaml:"poll_interval_ms"`
	PollInterval            time.Duration `yaml:"-"`
	AutoScanIntervalSeconds int           `yaml:"auto_scan_interval_seconds"`
	AutoScanInterval        time.Duration `yaml:"-"` // 0 disables periodic scans
	ScanOnStart             bool          `yaml:"scan_on_start"`
}

// AntminerConfig is the credential for the Antminer web interface.
type AntminerConfig struct {
	WebPort     int    `yaml:"web_port"`
	WebUser     string `yaml:"web_user"`
	WebPassword string `yaml:"web_password"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // sqlite or postgres
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	ConnectAttempts        uint   `yaml:"connect_attempts"`
}

// MessagingConfig selects where scan summaries are published. An empty backend
// disables publishing.
type MessagingConfig struct {
	Backend string      `yaml:"backend"` // "", mqtt or kafka
	Topic   string      `yaml:"topic"`
	MQTT    MQTTConfig  `yaml:"mqtt"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// KafkaConfig holds the Kafka writer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// DisplayConfig toggles the terminal UI.
type DisplayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// InterfaceAddrs lists interface addresses for subnet detection. Tests replace it.
var InterfaceAddrs = func() ([]psnet.InterfaceStat, error) {
	return psnet.Interfaces()
}

// Load reads the configuration from the given path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MINER_SCANNER_SUBNET"); v != "" {
		cfg.Scanner.Subnet = v
	}
	if v := os.Getenv("MINER_SCANNER_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Warn().Str("value", v).Msg("ignoring invalid MINER_SCANNER_WEB_PORT")
		}
	}
	if v := os.Getenv("MINER_SCANNER_WEB_PASSWORD"); v != "" {
		cfg.Antminer.WebPassword = v
	}
	if os.Getenv("MINER_SCANNER_WHATSMINER_PASSWORD") != "" {
		// the read-only btminer commands need no password, and it is not an Antminer credential
		log.Warn().Msg("MINER_SCANNER_WHATSMINER_PASSWORD is ignored")
	}
	if v := os.Getenv("MINER_SCANNER_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 5
	}
	if cfg.Server.ScanRateLimitPerMin <= 0 {
		cfg.Server.ScanRateLimitPerMin = 12
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if strings.TrimSpace(cfg.Scanner.Subnet) == "" {
		cfg.Scanner.Subnet = DetectSubnet()
	}
	if cfg.Scanner.Port <= 0 {
		cfg.Scanner.Port = 4028
	}
	if cfg.Scanner.TimeoutMillis <= 0 {
		cfg.Scanner.TimeoutMillis = 2000
	}
	cfg.Scanner.Timeout = time.Duration(cfg.Scanner.TimeoutMillis) * time.Millisecond
	if cfg.Scanner.Concurrency <= 0 {
		cfg.Scanner.Concurrency = 256
	}
	if cfg.Scanner.MinPrefixLen <= 0 || cfg.Scanner.MinPrefixLen > 32 {
		cfg.Scanner.MinPrefixLen = 16
	}
	if cfg.Scanner.PollIntervalMillis <= 0 {
		cfg.Scanner.PollIntervalMillis = 1000
	}
	cfg.Scanner.PollInterval = time.Duration(cfg.Scanner.PollIntervalMillis) * time.Millisecond
	if cfg.Scanner.AutoScanIntervalSeconds < 0 {
		cfg.Scanner.AutoScanIntervalSeconds = 0
	}
	cfg.Scanner.AutoScanInterval = time.Duration(cfg.Scanner.AutoScanIntervalSeconds) * time.Second

	if cfg.Antminer.WebPort <= 0 {
		cfg.Antminer.WebPort = 80
	}
	if cfg.Antminer.WebUser == "" {
		cfg.Antminer.WebUser = "root"
	}
	if cfg.Antminer.WebPassword == "" {
		cfg.Antminer.WebPassword = "root"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "miner-scanner.db"
	}
	if cfg.Database.ConnectAttempts == 0 {
		cfg.Database.ConnectAttempts = 5
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Info().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 100
	}

	if cfg.Messaging.Topic == "" {
		cfg.Messaging.Topic = "miner-scanner/scans"
	}
	if cfg.Messaging.MQTT.ClientID == "" {
		cfg.Messaging.MQTT.ClientID = "miner-scanner"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// DetectSubnet returns the /24 of the first up, non-loopback IPv4 interface, or
// DefaultSubnet when none can be found.
func DetectSubnet() string {
	ifaces, err := InterfaceAddrs()
	if err != nil {
		log.Warn().Err(err).Str("subnet", DefaultSubnet).Msg("interface lookup failed, using default subnet")
		return DefaultSubnet
	}
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(addr.Addr)
			}
			ip4 := ip.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			return fmt.Sprintf("%d.%d.%d.0/24", ip4[0], ip4[1], ip4[2])
		}
	}
	log.Warn().Str("subnet", DefaultSubnet).Msg("no usable interface, using default subnet")
	return DefaultSubnet
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
