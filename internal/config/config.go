package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	GeoIP    GeoIPConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int    // in MB
	Env         string // development, production
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	From     string
	FromName string
	Username string
	Password string
	TLS      bool
}

// AuthConfig carries the verification and login-guard policy knobs.
type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	OTPLength        int
	TokenLength      int // random bytes before hex encoding
	SecretTTL        time.Duration
	ResendBaseWait   time.Duration // cooldown unit multiplied by resend count
	ResendMaxWait    time.Duration // cooldown cap
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	EmailRetries     int
	EmailRetryDelay  time.Duration
}

type GeoIPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Endpoint string
	Timeout  time.Duration
	Enabled  bool
}

// IsProduction reports whether the server runs in production mode. Outside
// production, error responses include stack traces.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			Env:         cmd.String("env"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Auth: AuthConfig{
			OTPLength:        int(cmd.Int("otp-length")),
			TokenLength:      int(cmd.Int("token-length")),
			SecretTTL:        cmd.Duration("secret-ttl"),
			ResendBaseWait:   cmd.Duration("resend-base-wait"),
			ResendMaxWait:    cmd.Duration("resend-max-wait"),
			MaxLoginAttempts: int(cmd.Int("max-login-attempts")),
			LockoutDuration:  cmd.Duration("lockout-duration"),
			EmailRetries:     int(cmd.Int("email-retries")),
			EmailRetryDelay:  cmd.Duration("email-retry-delay"),
		},
		GeoIP: GeoIPConfig{
			Endpoint: cmd.String("geoip-endpoint"),
			Timeout:  cmd.Duration("geoip-timeout"),
			Enabled:  cmd.Bool("geoip-enabled"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   3000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in verification links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "env",
			Value:   "development",
			Usage:   "Runtime environment (development, production)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APP_ENV"), toml.TOML("server.env", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/auth.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "My App",
			Usage:   "Sender display name for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Usage:   "Require TLS for SMTP connections",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-length",
			Value:   6,
			Usage:   "Number of digits in verification OTPs",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_LENGTH"), toml.TOML("auth.otp_length", configFile)),
		},
		&cli.IntFlag{
			Name:    "token-length",
			Value:   32,
			Usage:   "Number of random bytes in verification tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_LENGTH"), toml.TOML("auth.token_length", configFile)),
		},
		&cli.DurationFlag{
			Name:    "secret-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of verification OTPs and tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SECRET_TTL"), toml.TOML("auth.secret_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "resend-base-wait",
			Value:   10 * time.Second,
			Usage:   "Base cooldown unit between verification resends",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESEND_BASE_WAIT"), toml.TOML("auth.resend_base_wait", configFile)),
		},
		&cli.DurationFlag{
			Name:    "resend-max-wait",
			Value:   time.Hour,
			Usage:   "Maximum cooldown between verification resends",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESEND_MAX_WAIT"), toml.TOML("auth.resend_max_wait", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-login-attempts",
			Value:   10,
			Usage:   "Consecutive failed logins before the account locks",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_LOGIN_ATTEMPTS"), toml.TOML("auth.max_login_attempts", configFile)),
		},
		&cli.DurationFlag{
			Name:    "lockout-duration",
			Value:   time.Hour,
			Usage:   "How long a locked account stays locked",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOCKOUT_DURATION"), toml.TOML("auth.lockout_duration", configFile)),
		},
		&cli.IntFlag{
			Name:    "email-retries",
			Value:   3,
			Usage:   "Delivery attempts per verification email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_RETRIES"), toml.TOML("auth.email_retries", configFile)),
		},
		&cli.DurationFlag{
			Name:    "email-retry-delay",
			Value:   2 * time.Second,
			Usage:   "Delay between email delivery attempts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_RETRY_DELAY"), toml.TOML("auth.email_retry_delay", configFile)),
		},
		&cli.StringFlag{
			Name:    "geoip-endpoint",
			Value:   "http://ip-api.com/json",
			Usage:   "Geolocation lookup endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GEOIP_ENDPOINT"), toml.TOML("geoip.endpoint", configFile)),
		},
		&cli.DurationFlag{
			Name:    "geoip-timeout",
			Value:   2 * time.Second,
			Usage:   "Timeout for geolocation lookups",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GEOIP_TIMEOUT"), toml.TOML("geoip.timeout", configFile)),
		},
		&cli.BoolFlag{
			Name:    "geoip-enabled",
			Value:   true,
			Usage:   "Annotate login history with coarse location",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GEOIP_ENABLED"), toml.TOML("geoip.enabled", configFile)),
		},
	}
}
