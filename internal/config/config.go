package config

import "time"

// Config is the root configuration for a trader instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Workers    WorkersConfig    `yaml:"workers"`
	Queue      QueueConfig      `yaml:"queue"`
	ControlLog ControlLogConfig `yaml:"control_log"`
	Stream     StreamConfig     `yaml:"stream"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this trader. ID is sent to the exchange as the
// strategy reference and used to filter settlement results.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds exchange API settings.
type APIConfig struct {
	LoginURL       string        `yaml:"login_url"`
	CertLoginURL   string        `yaml:"cert_login_url"`
	KeepAliveURL   string        `yaml:"keep_alive_url"`
	BettingURL     string        `yaml:"betting_url"`
	AccountURL     string        `yaml:"account_url"`
	AppKey         string        `yaml:"app_key"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	CertFile       string        `yaml:"cert_file"` // Optional client certificate for non-interactive login
	KeyFile        string        `yaml:"key_file"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RateLimit      float64       `yaml:"rate_limit"` // Requests per second, <= 0 disables limiting
	RateBurst      int           `yaml:"rate_burst"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection used by the control log.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WorkersConfig schedules the background tasks.
type WorkersConfig struct {
	KeepAlive       WorkerConfig `yaml:"keep_alive"`
	MarketCatalogue WorkerConfig `yaml:"poll_market_catalogue"`
	AccountBalance  WorkerConfig `yaml:"poll_account_balance"`
	ClearedOrders   WorkerConfig `yaml:"poll_cleared_orders"`
	ProcessOrders   WorkerConfig `yaml:"process_orders"`
}

// WorkerConfig schedules one task.
type WorkerConfig struct {
	Disabled   bool          `yaml:"disabled"`
	Interval   time.Duration `yaml:"interval"`
	StartDelay time.Duration `yaml:"start_delay"`
}

// QueueConfig sizes the handler queue.
type QueueConfig struct {
	InitialCapacity int `yaml:"initial_capacity"`
}

// ControlLogConfig holds control log writer settings. When disabled the
// trader logs entries instead of writing them to PostgreSQL.
type ControlLogConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	MaxPending    int           `yaml:"max_pending"`
}

// StreamConfig holds market stream settings.
type StreamConfig struct {
	Enabled            bool          `yaml:"enabled"`
	URL                string        `yaml:"url"`
	MarketIDs          []string      `yaml:"market_ids"`
	EventTypeIDs       []string      `yaml:"event_type_ids"`
	MarketTypes        []string      `yaml:"market_types"`
	CountryCodes       []string      `yaml:"country_codes"`
	HeartbeatMs        int           `yaml:"heartbeat_ms"`
	ConflateMs         int           `yaml:"conflate_ms"`
	BufferSize         int           `yaml:"buffer_size"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
