package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/strogmv/assembler/assembler/info"
)

type Config struct {
	// Naming defaults every application inherits.
	JndiFormat          string `env:"OPENEJB_JNDINAME_FORMAT"`
	JndiStrategy        string `env:"OPENEJB_JNDINAME_STRATEGY_CLASS"`
	JndiFailOnCollision bool   `env:"OPENEJB_JNDINAME_FAILONCOLLISION" env-default:"true"`
	StrictReferences    bool   `env:"ASSEMBLER_STRICT_REFERENCES" env-default:"true"`
	AutoCreate          bool   `env:"ASSEMBLER_AUTOCREATE_CONTAINERS" env-default:"true"`
	ExceptionBuffer     int    `env:"ASSEMBLER_EXCEPTION_BUFFER" env-default:"10"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	HTTPAddr       string `env:"HTTP_ADDR" env-default:":8080"`
	CORSOrigins    string `env:"CORS_ORIGINS" env-default:"*"`
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`

	NATSURL       string `env:"NATS_URL"`
	NATSSubject   string `env:"NATS_SUBJECT" env-default:"assembler.events"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	LedgerPrefix  string `env:"LEDGER_PREFIX" env-default:"assembler:jndi:"`
	DatabaseURL   string `env:"DATABASE_URL"`

	S3Bucket   string `env:"S3_BUCKET"`
	S3Region   string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint string `env:"S3_ENDPOINT"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" env-default:"assembler"`
}

func Load() (*Config, error) {
	var cfg Config

	// Environment only; descriptor files carry per-application properties.
	err := cleanenv.ReadEnv(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return &cfg, nil
}

// Properties returns the system-level assembler options. Unset naming
// options are left out so the engine defaults apply.
func (c *Config) Properties() info.Properties {
	props := info.Properties{
		"openejb.jndiname.failoncollision":    fmt.Sprint(c.JndiFailOnCollision),
		"openejb.assembler.strict.references": fmt.Sprint(c.StrictReferences),
		"openejb.autocreate.containers":       fmt.Sprint(c.AutoCreate),
	}
	if c.JndiFormat != "" {
		props["openejb.jndiname.format"] = c.JndiFormat
	}
	if c.JndiStrategy != "" {
		props["openejb.jndiname.strategy.class"] = c.JndiStrategy
	}
	return props
}
