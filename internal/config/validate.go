package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.API.validate("api"); err != nil {
		return err
	}

	workers := []struct {
		name string
		cfg  WorkerConfig
	}{
		{"keep_alive", c.Workers.KeepAlive},
		{"poll_market_catalogue", c.Workers.MarketCatalogue},
		{"poll_account_balance", c.Workers.AccountBalance},
		{"poll_cleared_orders", c.Workers.ClearedOrders},
		{"process_orders", c.Workers.ProcessOrders},
	}
	for _, w := range workers {
		if err := w.cfg.validate("workers." + w.name); err != nil {
			return err
		}
	}

	if c.Queue.InitialCapacity < 1 {
		return errors.New("queue.initial_capacity must be >= 1")
	}

	if c.ControlLog.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.ControlLog.BatchSize < 1 {
			return errors.New("control_log.batch_size must be >= 1")
		}
		if c.ControlLog.FlushInterval <= 0 {
			return errors.New("control_log.flush_interval must be > 0")
		}
		if c.ControlLog.BufferSize < 1 {
			return errors.New("control_log.buffer_size must be >= 1")
		}
	}

	if c.Stream.Enabled {
		if c.Stream.URL == "" {
			return errors.New("stream.url is required when stream is enabled")
		}
		if len(c.Stream.MarketIDs) == 0 && len(c.Stream.EventTypeIDs) == 0 {
			return errors.New("stream requires market_ids or event_type_ids")
		}
		if c.Stream.BufferSize < 1 {
			return errors.New("stream.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (a *APIConfig) validate(prefix string) error {
	if a.AppKey == "" {
		return fmt.Errorf("%s.app_key is required", prefix)
	}
	if a.Username == "" {
		return fmt.Errorf("%s.username is required", prefix)
	}
	if a.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if (a.CertFile == "") != (a.KeyFile == "") {
		return fmt.Errorf("%s.cert_file and %s.key_file must be set together", prefix, prefix)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be > 0", prefix)
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	if a.SessionTimeout <= 0 {
		return fmt.Errorf("%s.session_timeout must be > 0", prefix)
	}
	return nil
}

func (w *WorkerConfig) validate(prefix string) error {
	if w.Disabled {
		return nil
	}
	if w.Interval <= 0 {
		return fmt.Errorf("%s.interval must be > 0", prefix)
	}
	if w.StartDelay < 0 {
		return fmt.Errorf("%s.start_delay must be >= 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
