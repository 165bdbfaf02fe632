package config

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Federation struct {
	// Scheme every federated identifier must carry. Plain http is only
	// useful for local federation test setups.
	Scheme string `env:"SCHEME, default=https"`

	// Hostname of this instance, may carry a port.
	Hostname string `env:"HOSTNAME, required"`

	// Remote domains we accept activities from.
	AllowedDomains []string `env:"ALLOWED_DOMAINS"`

	RetryAttempts  uint          `env:"RETRY_ATTEMPTS, default=3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY, default=500ms"`

	// Upper bound on concurrent inbox deliveries per dispatch call.
	DeliveryConcurrency int           `env:"DELIVERY_CONCURRENCY, default=8"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT, default=10s"`
}

type Server struct {
	ListenAddr string `env:"LISTEN_ADDR, default=0.0.0.0:8536"`
	DBPath     string `env:"DB_PATH, default=commune.db"`
}

type Config struct {
	Federation Federation `env:",prefix=COMMUNE_FEDERATION_"`
	Server     Server     `env:",prefix=COMMUNE_SERVER_"`
}

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	err := envconfig.Process(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LocalDomain is the hostname with any port stripped. Activities may
// reference objects authored locally, so the local domain is always part
// of the allowlist.
func (f Federation) LocalDomain() string {
	host, _, found := strings.Cut(f.Hostname, ":")
	if found {
		return host
	}
	return f.Hostname
}

// AllowedInstances returns the configured allowlist plus the local domain.
func (f Federation) AllowedInstances() []string {
	instances := make([]string, 0, len(f.AllowedDomains)+1)
	instances = append(instances, f.AllowedDomains...)
	instances = append(instances, f.LocalDomain())
	return instances
}
