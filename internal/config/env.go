package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists every environment variable Load honours. DarkMode is a
// pointer so PREFSURVEY_DARK_MODE=false can override a true file setting.
type envOverrides struct {
	EndpointURL     string `env:"PREFSURVEY_ENDPOINT_URL"`
	EndpointTimeout string `env:"PREFSURVEY_ENDPOINT_TIMEOUT"`
	EmailDomain     string `env:"PREFSURVEY_EMAIL_DOMAIN"`
	Delivery        string `env:"PREFSURVEY_DELIVERY"`
	LogFile         string `env:"PREFSURVEY_LOG_FILE"`
	LogLevel        string `env:"PREFSURVEY_LOG_LEVEL"`
	ReceiverAddr    string `env:"PREFSURVEY_RECEIVER_ADDR"`
	ReceiverDB      string `env:"PREFSURVEY_RECEIVER_DB"`
	DarkMode        *bool  `env:"PREFSURVEY_DARK_MODE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := ParseEnv(&o); err != nil {
		return err
	}

	if o.EndpointURL != "" {
		c.Endpoint.URL = o.EndpointURL
	}
	if o.EndpointTimeout != "" {
		c.Endpoint.Timeout = o.EndpointTimeout
	}
	if o.EmailDomain != "" {
		c.Survey.EmailDomain = o.EmailDomain
	}
	if o.Delivery != "" {
		c.Survey.Flow.Delivery = o.Delivery
	}
	if o.LogFile != "" {
		c.Logging.File = o.LogFile
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.ReceiverAddr != "" {
		c.Receiver.Addr = o.ReceiverAddr
	}
	if o.ReceiverDB != "" {
		c.Receiver.Database = o.ReceiverDB
	}
	if o.DarkMode != nil {
		c.UI.DarkMode = *o.DarkMode
	}
	return nil
}
