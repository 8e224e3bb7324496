package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	InferenceURL     string
	InferenceTimeout time.Duration
	JPEGQuality      int

	CaptureInterval    time.Duration
	StatsTTL           time.Duration
	SessionIdleTimeout time.Duration
	ReapInterval       time.Duration

	CameraSource      string
	CameraWidth       int
	CameraHeight      int
	CameraOpenTimeout time.Duration

	RTCICEServers []ICEServerConfig
	RTCPortMin    int
	RTCPortMax    int

	StaticDir string
	IndexHTML string
}

type ICEServerConfig struct {
	URLs       []string
	Username   string
	Credential string
}

const (
	CameraSourceRemote = "remote"
	CameraSourceLocal  = "local"
)

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:5001"),
		InferenceTimeout: getEnvDuration("INFERENCE_TIMEOUT", 10*time.Second),
		JPEGQuality:      getEnvInt("JPEG_QUALITY", 80),

		CaptureInterval:    getEnvDuration("CAPTURE_INTERVAL", 3*time.Second),
		StatsTTL:           getEnvDuration("STATS_TTL", 10*time.Minute),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ReapInterval:       getEnvDuration("SESSION_REAP_INTERVAL", time.Minute),

		CameraSource:      strings.ToLower(getEnv("CAMERA_SOURCE", CameraSourceRemote)),
		CameraWidth:       getEnvInt("CAMERA_WIDTH", 1280),
		CameraHeight:      getEnvInt("CAMERA_HEIGHT", 720),
		CameraOpenTimeout: getEnvDuration("CAMERA_OPEN_TIMEOUT", 5*time.Second),

		RTCICEServers: parseICEServers(getEnv("RTC_ICE_SERVERS", "stun:stun.l.google.com:19302")),
		RTCPortMin:    getEnvInt("RTC_PORT_MIN", 10000),
		RTCPortMax:    getEnvInt("RTC_PORT_MAX", 20000),

		StaticDir: getEnv("STATIC_DIR", "./static"),
		IndexHTML: getEnv("INDEX_HTML", "./static/index.html"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseICEServers(envValue string) []ICEServerConfig {
	if envValue == "" {
		return []ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	var servers []ICEServerConfig
	for _, url := range strings.Split(envValue, ",") {
		url = strings.TrimSpace(url)
		if url != "" {
			servers = append(servers, ICEServerConfig{URLs: []string{url}})
		}
	}

	if len(servers) == 0 {
		return []ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	return servers
}
