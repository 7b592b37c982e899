package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Signaling SignalingConfig `yaml:"signaling"`
	Session   SessionConfig   `yaml:"session"`
	Peers     PeersConfig     `yaml:"peers"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	CORSOrigins     []string      `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type DatabaseConfig struct {
	// Driver selects the session/peer store backend:
	// "sqlite" (default), "postgres" or "memory".
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DB_DSN" env-default:"peerlink.sqlite"`
}

type SignalingConfig struct {
	// Token, when set, is the shared secret join frames must carry.
	Token             string        `yaml:"token" env:"SIGNALING_TOKEN"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"SIGNALING_HEARTBEAT_INTERVAL" env-default:"10s"`
	StaleTimeout      time.Duration `yaml:"stale_timeout" env:"SIGNALING_STALE_TIMEOUT" env-default:"30s"`
	WriteWait         time.Duration `yaml:"write_wait" env:"SIGNALING_WRITE_WAIT" env-default:"10s"`
}

type SessionConfig struct {
	CallTimeout    time.Duration `yaml:"call_timeout" env:"SESSION_CALL_TIMEOUT" env-default:"30s"`
	PurgeRetention time.Duration `yaml:"purge_retention" env:"SESSION_PURGE_RETENTION" env-default:"600s"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"10s"`
	// AllowBlindOverwrite restores the legacy behavior where accept/end
	// overwrite the session status regardless of its current state.
	AllowBlindOverwrite bool `yaml:"allow_blind_overwrite" env:"SESSION_ALLOW_BLIND_OVERWRITE" env-default:"false"`
}

type PeersConfig struct {
	LocalName string `yaml:"local_name" env:"PEERS_LOCAL_NAME" env-default:"You"`
	SeedDemo  bool   `yaml:"seed_demo" env:"PEERS_SEED_DEMO" env-default:"false"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	}
}
