package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Admission AdmissionConfig `yaml:"admission"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Client    ClientConfig    `yaml:"client"`
	Media     MediaConfig     `yaml:"media"`
	Meetings  []MeetingSeed   `yaml:"meetings"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains membership store connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains credential signing settings
type JWTConfig struct {
	Secret           string `yaml:"secret"`
	CredentialExpiry int    `yaml:"credential_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// AdmissionConfig tunes the participant-side polling loops
type AdmissionConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	ExpiryCeiling  time.Duration `yaml:"expiry_ceiling"`
	RosterInterval time.Duration `yaml:"roster_interval"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpirePending string `yaml:"expire_pending"`
}

// ClientConfig points the participant CLI at a membership server
type ClientConfig struct {
	BaseURL       string `yaml:"base_url"`
	IdentityToken string `yaml:"identity_token"` // issued by cmd/identity
}

// MediaConfig configures the media handoff
type MediaConfig struct {
	Transport  string   `yaml:"transport"` // "whip" or "dryrun"
	WHIPURL    string   `yaml:"whip_url"`
	ICEServers []string `yaml:"ice_servers"`
}

// MeetingSeed is a meeting the server creates at startup if missing
type MeetingSeed struct {
	ID    string `yaml:"id"`
	Owner string `yaml:"owner"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if val := os.Getenv("MEETING_GATE_URL"); val != "" {
		c.Client.BaseURL = val
	}
	if val := os.Getenv("MEETING_GATE_TOKEN"); val != "" {
		c.Client.IdentityToken = val
	}
	if val := os.Getenv("WHIP_URL"); val != "" {
		c.Media.WHIPURL = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.CredentialExpiry == 0 {
		c.JWT.CredentialExpiry = 240
	}

	// Admission defaults
	if c.Admission.PollInterval == 0 {
		c.Admission.PollInterval = 2 * time.Second
	}
	if c.Admission.ExpiryCeiling == 0 {
		c.Admission.ExpiryCeiling = 300 * time.Second
	}
	if c.Admission.RosterInterval == 0 {
		c.Admission.RosterInterval = time.Second
	}
	if c.Admission.CallTimeout == 0 {
		c.Admission.CallTimeout = 5 * time.Second
	}
	if c.Admission.PollInterval < 0 || c.Admission.ExpiryCeiling < 0 ||
		c.Admission.RosterInterval < 0 || c.Admission.CallTimeout < 0 {
		return fmt.Errorf("admission durations must be positive")
	}
	if c.Admission.ExpiryCeiling < c.Admission.PollInterval {
		return fmt.Errorf("expiry ceiling %s is shorter than poll interval %s", c.Admission.ExpiryCeiling, c.Admission.PollInterval)
	}

	// Scheduler defaults
	if c.Scheduler.ExpirePending == "" {
		c.Scheduler.ExpirePending = "0 * * * * *" // every minute
	}

	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Client.BaseURL = strings.TrimRight(c.Client.BaseURL, "/")

	if c.Media.Transport == "" {
		c.Media.Transport = "dryrun"
	}
	if c.Media.Transport == "whip" && c.Media.WHIPURL == "" {
		return fmt.Errorf("media whip_url is required for whip transport")
	}
	if len(c.Media.ICEServers) == 0 {
		c.Media.ICEServers = []string{"stun:stun.l.google.com:19302"}
	}

	seen := make(map[string]bool, len(c.Meetings))
	for i, m := range c.Meetings {
		if m.ID == "" || m.Owner == "" {
			return fmt.Errorf("meetings[%d]: id and owner are required", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("meetings[%d]: duplicate meeting id %q", i, m.ID)
		}
		seen[m.ID] = true
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health address, empty when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// CredentialTTL returns how long an issued credential stays valid
func (c *Config) CredentialTTL() time.Duration {
	return time.Duration(c.JWT.CredentialExpiry) * time.Minute
}
