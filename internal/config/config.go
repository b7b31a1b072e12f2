package config

import (
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string        `mapstructure:"database_url"`
	ServerPort  string        `mapstructure:"server_port"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	LogLevel    string        `mapstructure:"log_level"`
	Environment string        `mapstructure:"environment"`
	CORS        CORSConfig    `mapstructure:"cors"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Sharing     SharingConfig `mapstructure:"sharing"`
	History     HistoryConfig `mapstructure:"history"`
	Email       EmailConfig   `mapstructure:"email"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type HTTPConfig struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SharingConfig struct {
	InviteTTL         time.Duration `mapstructure:"invite_ttl"`
	InviteURLTemplate string        `mapstructure:"invite_url_template"`
}

type HistoryConfig struct {
	MaxPerTrip   int `mapstructure:"max_per_trip"`
	DefaultLimit int `mapstructure:"default_limit"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether invite mails can be sent.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != ""
}

// IsDevelopment selects the console log writer.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads config.yaml from the current directory or ./config and exits on failure.
func Load() *Config {
	v := newViper()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")

	cfg, err := read(v)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// LoadFrom reads the configuration from an explicit file path.
func LoadFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRIPPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("sharing.invite_ttl", 60*time.Minute)
	v.SetDefault("sharing.invite_url_template", "https://app.tripplan.dev/shared/%s")
	v.SetDefault("history.max_per_trip", 500)
	v.SetDefault("history.default_limit", 20)
	v.SetDefault("email.smtp_port", 587)

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"database_url", "jwt_secret", "email.from", "email.smtp_host", "email.username", "email.password"} {
		_ = v.BindEnv(key)
	}
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt_secret must be set")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url must be set")
	}
	if cfg.History.MaxPerTrip <= 0 {
		return nil, errors.Errorf("history.max_per_trip must be positive, got %d", cfg.History.MaxPerTrip)
	}
	if cfg.Sharing.InviteTTL <= 0 {
		return nil, errors.Errorf("sharing.invite_ttl must be positive, got %s", cfg.Sharing.InviteTTL)
	}
	if !strings.Contains(cfg.Sharing.InviteURLTemplate, "%s") {
		return nil, errors.New("sharing.invite_url_template must contain %s")
	}
	return &cfg, nil
}
