package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  Server  `yaml:"server" json:"server"`
	Storage Storage `yaml:"storage" json:"storage"`
	Rewards Rewards `yaml:"rewards" json:"rewards"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

type Storage struct {
	// Backend selects the persistence collaborator: "file" or "sqlite".
	Backend    string `yaml:"backend" json:"backend"`
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

type Rewards struct {
	GuildReputation  int `yaml:"guild_reputation" json:"guild_reputation"`
	MemberReputation int `yaml:"member_reputation" json:"member_reputation"`
}

func Default() *Config {
	return &Config{
		Server:  Server{Addr: ":8642"},
		Storage: Storage{Backend: "file", DataDir: "data", SQLitePath: "data/guildboard.db"},
		Rewards: Rewards{GuildReputation: 1000, MemberReputation: 100},
	}
}

// Load reads the yaml config at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)

	switch cfg.Storage.Backend {
	case "file", "sqlite":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GUILDBOARD_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("GUILDBOARD_DATA_DIR")); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("GUILDBOARD_STORAGE")); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("GUILDBOARD_SQLITE_PATH")); v != "" {
		cfg.Storage.SQLitePath = v
	}
}
