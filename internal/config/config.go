package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pion/webrtc/v3"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	HTTP        HTTPConfig        `yaml:"http"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	WebRTC      WebRTCConfig      `yaml:"webrtc"`
	Database    DatabaseConfig    `yaml:"database"`
}

type HTTPConfig struct {
	Address      string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ORIGIN"`
}

type WebSocketConfig struct {
	ReadBufferSize    int           `yaml:"read_buffer_size" env-default:"1024"`
	WriteBufferSize   int           `yaml:"write_buffer_size" env-default:"1024"`
	EventBuffer       int           `yaml:"event_buffer" env-default:"16"`
	MaxMessageBytes   int64         `yaml:"max_message_bytes" env-default:"65536"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env-default:"10s"`
	PongWait          time.Duration `yaml:"pong_wait" env-default:"60s"`
	MessagesPerSecond float64       `yaml:"messages_per_second" env-default:"20"`
	Burst             int           `yaml:"burst" env-default:"40"`
}

type MatchmakingConfig struct {
	QueueTTL        time.Duration `yaml:"queue_ttl" env:"QUEUE_TTL" env-default:"120s"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env-default:"10s"`
	PresenceTTL     time.Duration `yaml:"presence_ttl" env-default:"5m"`
	SessionTTL      time.Duration `yaml:"session_ttl" env-default:"0s"`
	LongPollTimeout time.Duration `yaml:"long_poll_timeout" env-default:"25s"`
	RequeuePartner  bool          `yaml:"requeue_partner" env:"REQUEUE_PARTNER" env-default:"false"`
}

type WebRTCConfig struct {
	STUNServers []string     `yaml:"stun_servers" env:"STUN_SERVERS"`
	TURNServers []TURNServer `yaml:"turn_servers"`
}

type TURNServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := LoadPath(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func LoadPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &os.PathError{Op: "config", Path: configPath, Err: os.ErrNotExist}
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	return &cfg, nil
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
		c.HTTP.Address = ":9000"
	}
	if len(c.HTTP.AllowOrigins) == 0 {
		c.HTTP.AllowOrigins = []string{"http://localhost:5173"}
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:3478",
		}
	}
	if c.Matchmaking.QueueTTL <= 0 {
		c.Matchmaking.QueueTTL = 120 * time.Second
	}
	if c.Matchmaking.SweepInterval <= 0 {
		c.Matchmaking.SweepInterval = 10 * time.Second
	}
	if c.Matchmaking.LongPollTimeout <= 0 || c.Matchmaking.LongPollTimeout > 25*time.Second {
		c.Matchmaking.LongPollTimeout = 25 * time.Second
	}
}

// ICEServers converts the configured STUN/TURN endpoints for clients' peer connections.
func (c WebRTCConfig) ICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, 1+len(c.TURNServers))
	if len(c.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNServers})
	}
	for _, t := range c.TURNServers {
		if len(t.URLs) == 0 {
			continue
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:           t.URLs,
			Username:       t.Username,
			Credential:     t.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers
}
