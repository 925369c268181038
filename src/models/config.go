package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	Upstream   MUpstreamConfig   `yaml:"upstream"`
	Cache      MCacheConfig      `yaml:"cache"`
	Aggregator MAggregatorConfig `yaml:"aggregator"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MUpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Format  string `yaml:"format"`
}

type MCacheConfig struct {
	TTLSeconds           int `yaml:"ttl_seconds"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

type MAggregatorConfig struct {
	InterCallDelayMs int               `yaml:"inter_call_delay_ms"`
	Indicators       []string          `yaml:"indicators"`
	Units            map[string]string `yaml:"units"`     // Display unit per indicator
	Countries        []string          `yaml:"countries"` // Optional allowlist
	TrailingDelay    bool              `yaml:"trailing_delay"`
}
