// Package config lê a configuração do serviço a partir do ambiente.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendHTTP = "http"
	BackendNATS = "nats"
)

// Config é a configuração completa do serviço de sessão.
type Config struct {
	ServiceName       string `env:"SESSION_SERVICE_NAME" envDefault:"jokenpo-session"`
	ServicePort       int    `env:"SESSION_SERVICE_PORT" envDefault:"8080"`
	HealthCheckPort   int    `env:"HEALTH_CHECK_PORT"`
	AdvertisedHost    string `env:"SERVICE_ADVERTISED_HOSTNAME"`
	ConsulAddrs       string `env:"CONSUL_HTTP_ADDR"`
	NATSURL           string `env:"NATS_URL"`
	ClassifierBackend string `env:"CLASSIFIER_BACKEND" envDefault:"http"`
	// ClassifierURL tem prioridade sobre a descoberta via Consul.
	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierService string        `env:"CLASSIFIER_SERVICE" envDefault:"jokenpo-classifier"`
	ClassifierSubject string        `env:"CLASSIFIER_SUBJECT" envDefault:"jokenpo.classify"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"5s"`

	MaxScore       int           `env:"JOKENPO_MAX_SCORE" envDefault:"3"`
	CaptureDelay   time.Duration `env:"JOKENPO_CAPTURE_DELAY" envDefault:"2s"`
	TimestampDelay time.Duration `env:"JOKENPO_TIMESTAMP_DELAY" envDefault:"5s"`
	RoundTimeout   time.Duration `env:"JOKENPO_ROUND_TIMEOUT" envDefault:"60s"`

	ClientRateLimit float64 `env:"CLIENT_RATE_LIMIT" envDefault:"20"`
	ClientRateBurst int     `env:"CLIENT_RATE_BURST" envDefault:"40"`
}

// Load carrega um .env opcional e depois lê o ambiente.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		// Sem .env é o caso normal dentro do contêiner.
		log.Printf("[Config] INFO: No .env file loaded: %v", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HealthCheckPort == 0 {
		cfg.HealthCheckPort = cfg.ServicePort
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate confere combinações que as tags não conseguem expressar.
func (c Config) Validate() error {
	var errs []error
	if c.ServicePort <= 0 || c.ServicePort > 65535 {
		errs = append(errs, fmt.Errorf("SESSION_SERVICE_PORT out of range: %d", c.ServicePort))
	}
	if c.HealthCheckPort <= 0 || c.HealthCheckPort > 65535 {
		errs = append(errs, fmt.Errorf("HEALTH_CHECK_PORT out of range: %d", c.HealthCheckPort))
	}
	if c.MaxScore <= 0 {
		errs = append(errs, fmt.Errorf("JOKENPO_MAX_SCORE must be positive, got %d", c.MaxScore))
	}
	switch c.ClassifierBackend {
	case BackendHTTP:
		if c.ClassifierURL == "" && c.ConsulAddrs == "" {
			errs = append(errs, errors.New("http classifier needs CLASSIFIER_URL or CONSUL_HTTP_ADDR for discovery"))
		}
	case BackendNATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("nats classifier needs NATS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.ClassifierBackend))
	}
	return errors.Join(errs...)
}

// Addr é o endereço de escuta do servidor HTTP.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServicePort)
}

// HealthAddr é o endereço do servidor de /health exigido pelo check do Consul.
func (c Config) HealthAddr() string {
	return fmt.Sprintf(":%d", c.HealthCheckPort)
}

// SeparateHealthListener informa se /health precisa de um listener próprio.
func (c Config) SeparateHealthListener() bool {
	return c.HealthCheckPort != c.ServicePort
}
