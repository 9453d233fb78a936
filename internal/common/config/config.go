package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`

		// Long-polling timeout for getUpdates, seconds.
		PollTimeout int `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30"`
	}

	Auth struct {
		// Either the password itself or a file holding it; the file wins
		// when both are set.
		Password     string `env:"AUTH_PASSWORD"`
		PasswordFile string `env:"AUTH_PASSWORD_FILE"`
	}

	Storage struct {
		Dir     string `env:"STORAGE_DIR" envDefault:"printed_files"`
		LogFile string `env:"LOG_FILE" envDefault:"printerbot.log"`
	}

	Limits struct {
		FileSizeLimit  int64         `env:"FILE_SIZE_LIMIT" envDefault:"67108864"`
		PageLimit      int           `env:"PAGE_LIMIT" envDefault:"100"`
		ConvertTimeout time.Duration `env:"CONVERT_TIMEOUT" envDefault:"60s"`
		SpoolerTimeout time.Duration `env:"SPOOLER_TIMEOUT" envDefault:"10s"`

		// Maximum number of updates processed concurrently.
		Workers int64 `env:"WORKERS" envDefault:"8"`
	}
}

func Load() (*Config, error) {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// AuthSecret resolves the shared print password. AUTH_PASSWORD_FILE takes
// precedence so the secret can live outside the environment.
func (c *Config) AuthSecret() (string, error) {
	if c.Auth.PasswordFile != "" {
		data, err := os.ReadFile(c.Auth.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if c.Auth.Password == "" {
		return "", fmt.Errorf("neither AUTH_PASSWORD nor AUTH_PASSWORD_FILE is set")
	}

	return c.Auth.Password, nil
}
