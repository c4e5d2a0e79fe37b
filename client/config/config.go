// Package config reads client settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"truco-table/client/effects"
	"truco-table/client/loop"
	"truco-table/client/phrase"
)

type Config struct {
	EngineURL     string        `env:"ENGINE_URL"     envDefault:"http://127.0.0.1:5000"`
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"10s"`
	TargetScore   int           `env:"TARGET_SCORE"   envDefault:"30"`
	AutoStart     bool          `env:"AUTO_START"     envDefault:"false"`

	PollInterval    time.Duration `env:"POLL_INTERVAL"    envDefault:"1s"`
	SpeechDuration  time.Duration `env:"SPEECH_DURATION"  envDefault:"2500ms"`
	SummaryDelay    time.Duration `env:"SUMMARY_DELAY"    envDefault:"1s"`
	SummaryDuration time.Duration `env:"SUMMARY_DURATION" envDefault:"2s"`
	AdvanceAction   string        `env:"ADVANCE_ACTION"   envDefault:"call_envido"`

	SelfTag     string `env:"SELF_TAG"     envDefault:"Vos"`
	OpponentTag string `env:"OPPONENT_TAG" envDefault:"TrucoBot"`

	ListenAddr  string `env:"LISTEN_ADDR"  envDefault:":8090"`
	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	UseColor  string `env:"USE_COLOR"`
	NoColor   string `env:"NO_COLOR"`
	Console   bool   `env:"CONSOLE" envDefault:"true"`
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses and validates the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.EngineURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("ENGINE_URL must be an absolute URL, got %q", c.EngineURL))
	}
	if c.TargetScore <= 0 {
		errs = append(errs, fmt.Errorf("TARGET_SCORE must be positive, got %d", c.TargetScore))
	}
	for name, d := range map[string]time.Duration{
		"ENGINE_TIMEOUT":   c.EngineTimeout,
		"POLL_INTERVAL":    c.PollInterval,
		"SPEECH_DURATION":  c.SpeechDuration,
		"SUMMARY_DELAY":    c.SummaryDelay,
		"SUMMARY_DURATION": c.SummaryDuration,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if strings.TrimSpace(c.AdvanceAction) == "" {
		errs = append(errs, errors.New("ADVANCE_ACTION must not be empty"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// Colors reports whether console output may use ANSI colors.
func (c Config) Colors() bool {
	return c.NoColor == "" && strings.TrimSpace(c.UseColor) != "0"
}

func (c Config) Loop() loop.Config {
	return loop.Config{
		PollInterval:  c.PollInterval,
		AdvanceAction: c.AdvanceAction,
		Durations: effects.Durations{
			Speech:       c.SpeechDuration,
			SummaryDelay: c.SummaryDelay,
			SummaryShow:  c.SummaryDuration,
		},
		Book: phrase.NewBook(c.SelfTag, c.OpponentTag),
	}
}

// Logger builds the root logger.
func (c Config) Logger() *logrus.Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: !c.Colors()})
	}
	return l
}
