package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config est immuable après Load; chaque composant reçoit la valeur (ou la
// sous-section) dont il a besoin via son constructeur.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Plex    PlexConfig    `koanf:"plex"`
	AniList AniListConfig `koanf:"anilist"`
	Mapping MappingConfig `koanf:"mapping"`
	History HistoryConfig `koanf:"history"`
	Notify  NotifyConfig  `koanf:"notify"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// PlexConfig scopes the relay to one account and a set of library sections.
type PlexConfig struct {
	Account   string   `koanf:"account"`
	Libraries []string `koanf:"libraries"`
}

type AniListConfig struct {
	Token    string        `koanf:"token"`
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

type MappingConfig struct {
	CatalogURL   string        `koanf:"catalog_url"`
	CatalogPath  string        `koanf:"catalog_path"`
	OverridePath string        `koanf:"override_path"`
	MaxAge       time.Duration `koanf:"max_age"`
}

type HistoryConfig struct {
	DBPath string `koanf:"db_path"`
}

type NotifyConfig struct {
	DiscordWebhook string `koanf:"discord_webhook"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Plex: PlexConfig{
			Libraries: []string{"Anime"},
		},
		AniList: AniListConfig{
			Endpoint: "https://graphql.anilist.co",
			Timeout:  15 * time.Second,
		},
		Mapping: MappingConfig{
			CatalogURL:  "https://raw.githubusercontent.com/Fribb/anime-lists/master/anime-list-mini.json",
			CatalogPath: "anidb-map.json",
			MaxAge:      24 * time.Hour,
		},
		History: HistoryConfig{
			DBPath: "pas.db",
		},
	}
}

// Load layers defaults, an optional YAML file and PAS_* environment variables
// (PAS_ANILIST_TOKEN -> anilist.token). path may be empty.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	def := Default()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider("PAS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAS_")), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Plex.Account) == "" {
		return fmt.Errorf("plex.account is required")
	}
	if strings.TrimSpace(c.AniList.Token) == "" {
		return fmt.Errorf("anilist.token is required")
	}
	if c.AniList.Timeout <= 0 {
		return fmt.Errorf("anilist.timeout must be positive")
	}
	if c.Mapping.MaxAge <= 0 {
		return fmt.Errorf("mapping.max_age must be positive")
	}
	return nil
}
