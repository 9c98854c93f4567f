package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override secrets in the file.
const (
	EnvAPIKey         = "TRENDLINE_API_KEY"
	EnvAPISecret      = "TRENDLINE_API_SECRET"
	EnvTelegramToken  = "TRENDLINE_TELEGRAM_TOKEN"
	EnvTelegramChatID = "TRENDLINE_TELEGRAM_CHAT_ID"
)

// LoadEnv populates the process environment from a .env file. A missing
// file is not an error. Variables already set are left alone.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overlays secrets from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv(EnvAPISecret); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}
