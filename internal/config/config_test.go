package config

import (
	"errors"
	"testing"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
)

func validConfig() Config {
	c := Config{}
	c.HTTP.Port = 8001
	c.Detector.BaseURL = "https://detect.example.com"
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := Config{}
	c.ApplyDefaults()

	if c.Engine.Thresholds != (decision.Thresholds{High: 75, Medium: 50, Low: 25}) {
		t.Errorf("default thresholds = %+v", c.Engine.Thresholds)
	}
	if c.Cache.Driver != "memory" || c.Cache.TTLSec != 5 || c.Cache.MaxEntries != 50 {
		t.Errorf("default cache = %+v", c.Cache)
	}
	if c.Detector.MaxRetries != 2 || c.Detector.Overlap != 45 {
		t.Errorf("default detector = %+v", c.Detector)
	}
	if c.Engine.Suggestions.FallbackLimit != 10 {
		t.Errorf("default fallback limit = %d", c.Engine.Suggestions.FallbackLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"missing base url", func(c *Config) { c.Detector.BaseURL = "" }, true},
		{"inverted thresholds", func(c *Config) {
			c.Engine.Thresholds = decision.Thresholds{High: 25, Medium: 50, Low: 75}
		}, true},
		{"bias out of range", func(c *Config) {
			c.Engine.CategoryBias = map[string]int{"Fresh": -150}
		}, true},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, true},
		{"redis driver without addrs", func(c *Config) { c.Cache.Driver = "redis" }, true},
		{"redis driver with addrs", func(c *Config) {
			c.Cache.Driver = "redis"
			c.Cache.Addrs = []string{"localhost:6379"}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Errorf("error %v is not ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SHELFSCAN_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("api_key: ${SHELFSCAN_TEST_KEY}")))
	if got != "api_key: secret" {
		t.Errorf("expanded = %q", got)
	}

	got = string(expandEnvVars([]byte("port: ${SHELFSCAN_TEST_UNSET:-8001}")))
	if got != "port: 8001" {
		t.Errorf("default expansion = %q", got)
	}

	got = string(expandEnvVars([]byte("addr: ${SHELFSCAN_TEST_UNSET}")))
	if got != "addr: " {
		t.Errorf("unset expansion = %q", got)
	}
}
