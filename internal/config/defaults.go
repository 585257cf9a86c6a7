package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLoginURL           = "https://identitysso.betfair.com/api/login"
	DefaultCertLoginURL       = "https://identitysso-cert.betfair.com/api/certlogin"
	DefaultKeepAliveURL       = "https://identitysso.betfair.com/api/keepAlive"
	DefaultBettingURL         = "https://api.betfair.com/exchange/betting/rest/v1.0"
	DefaultAccountURL         = "https://api.betfair.com/exchange/account/rest/v1.0"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRateLimit          = 5.0
	DefaultRateBurst          = 10
	DefaultSessionTimeout     = 12 * time.Hour
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultKeepAliveInterval  = 1200 * time.Second
	DefaultCatalogueInterval  = 60 * time.Second
	DefaultBalanceInterval    = 120 * time.Second
	DefaultClearedInterval    = 60 * time.Second
	DefaultProcessInterval    = 500 * time.Millisecond
	DefaultPollStartDelay     = 10 * time.Second
	DefaultQueueCapacity      = 1000
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultMaxPending         = 100000
	DefaultStreamBufferSize   = 1024
	DefaultPingTimeout        = 60 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.LoginURL == "" {
		c.API.LoginURL = DefaultLoginURL
	}
	if c.API.CertLoginURL == "" {
		c.API.CertLoginURL = DefaultCertLoginURL
	}
	if c.API.KeepAliveURL == "" {
		c.API.KeepAliveURL = DefaultKeepAliveURL
	}
	if c.API.BettingURL == "" {
		c.API.BettingURL = DefaultBettingURL
	}
	if c.API.AccountURL == "" {
		c.API.AccountURL = DefaultAccountURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}
	if c.API.SessionTimeout == 0 {
		c.API.SessionTimeout = DefaultSessionTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Worker defaults
	applyWorkerDefaults(&c.Workers.KeepAlive, DefaultKeepAliveInterval, 0)
	applyWorkerDefaults(&c.Workers.MarketCatalogue, DefaultCatalogueInterval, DefaultPollStartDelay)
	applyWorkerDefaults(&c.Workers.AccountBalance, DefaultBalanceInterval, DefaultPollStartDelay)
	applyWorkerDefaults(&c.Workers.ClearedOrders, DefaultClearedInterval, DefaultPollStartDelay)
	applyWorkerDefaults(&c.Workers.ProcessOrders, DefaultProcessInterval, 0)

	if c.Queue.InitialCapacity == 0 {
		c.Queue.InitialCapacity = DefaultQueueCapacity
	}

	// Control log defaults
	if c.ControlLog.BatchSize == 0 {
		c.ControlLog.BatchSize = DefaultBatchSize
	}
	if c.ControlLog.FlushInterval == 0 {
		c.ControlLog.FlushInterval = DefaultFlushInterval
	}
	if c.ControlLog.BufferSize == 0 {
		c.ControlLog.BufferSize = DefaultBufferSize
	}
	if c.ControlLog.MaxPending == 0 {
		c.ControlLog.MaxPending = DefaultMaxPending
	}

	// Stream defaults
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyWorkerDefaults(w *WorkerConfig, interval, startDelay time.Duration) {
	if w.Interval == 0 {
		w.Interval = interval
	}
	if w.StartDelay == 0 {
		w.StartDelay = startDelay
	}
}
