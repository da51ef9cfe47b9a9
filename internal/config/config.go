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
	Signaling SignalingConfig `yaml:"signaling"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	// Empty list allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type SignalingConfig struct {
	CallTimeout    time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT" env-default:"30s"`
	SendQueueSize  int           `yaml:"send_queue_size" env-default:"32"`
	ReadLimitBytes int64         `yaml:"read_limit_bytes" env-default:"65536"`
	WriteWait      time.Duration `yaml:"write_wait" env-default:"5s"`
	PongWait       time.Duration `yaml:"pong_wait" env-default:"60s"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers" env:"STUN_SERVERS" env-separator:","`
}

// PingPeriod is how often keepalive pings are written; it must stay below PongWait.
func (c SignalingConfig) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
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
		if port := os.Getenv("PORT"); port != "" {
			c.HTTP.Address = ":" + port
		} else {
			c.HTTP.Address = ":8080"
		}
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	c.Signaling = c.Signaling.WithDefaults()
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
}

func (c SignalingConfig) WithDefaults() SignalingConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 32
	}
	if c.ReadLimitBytes <= 0 {
		c.ReadLimitBytes = 64 * 1024
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	return c
}
