package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TELEGRAM_BOT_TOKEN,required"`
		WarningsLimit    int      `env:"WARNINGS_LIMIT,default=3"`
		StoragePath      string   `env:"WARNINGS_STORAGE,default=./warnings.json"`
		AdminOnlyLinks   Toggle   `env:"ADMIN_ONLY_LINKS,default=true"`
		DefaultLanguage  string   `env:"BOT_LANG,default=fa"`
		EnabledHandlers  []string `env:"HANDLERS,default=commands,linkguard,greeter"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
	}

	// Toggle parses the loose truthy strings the bot has historically
	// accepted in ADMIN_ONLY_LINKS, not just strconv booleans.
	Toggle bool
)

func (t *Toggle) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "1", "true", "yes", "on":
		*t = true
	case "", "0", "false", "no", "off":
		*t = false
	default:
		return fmt.Errorf("invalid boolean value %q", string(text))
	}
	return nil
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.OsLookuper(),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if cfg.WarningsLimit < 1 {
			cfg.WarningsLimit = 1
		}
		storagePath, err := homedir.Expand(cfg.StoragePath)
		if err != nil {
			globalErr = fmt.Errorf("expand storage path: %w", err)
			return
		}
		cfg.StoragePath = storagePath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
