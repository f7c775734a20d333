package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds process-level configuration resolved at startup.
// Runtime-tunable recognition parameters (tolerance, intervals, mode)
// live in the settings store instead, so they can change without a restart.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Database DatabaseConfig `yaml:"database"`
	Web      WebConfig      `yaml:"web"`
	Vision   VisionConfig   `yaml:"vision"`
	Enroll   EnrollConfig   `yaml:"enroll"`
}

// CameraConfig describes the default capture source. The store's cameras
// table takes precedence when it contains an active camera row.
type CameraConfig struct {
	Source string `yaml:"source"` // MJPEG URL (e.g. http://cam:8081/stream)
	Name   string `yaml:"name"`
}

// DatabaseConfig points at the embedded SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"` // defaults to smart-presence.db
}

// WebConfig configures the HTTP control and streaming surface.
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// AllowedOrigins is the CORS whitelist. Localhost origins are always
	// allowed on top of it.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// VisionConfig configures the external recognition service.
type VisionConfig struct {
	ServiceURL string `yaml:"service_url"` // detect/encode HTTP endpoint
	TimeoutSec int    `yaml:"timeout_sec"` // per-request timeout (default 10)
}

// EnrollConfig configures the enrollment source directory.
type EnrollConfig struct {
	PeopleDir string `yaml:"people_dir"` // people/<name>/*.jpg
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load resolves configuration from an optional YAML file pointed at by
// SMART_PRESENCE_CONFIG, with environment variables taking precedence.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("SMART_PRESENCE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Camera.Source = envString("CAMERA_SOURCE", defaultString(cfg.Camera.Source, "http://127.0.0.1:8081/stream"))
	cfg.Camera.Name = envString("CAMERA_NAME", defaultString(cfg.Camera.Name, "Default Camera"))
	cfg.Database.Path = envString("DATABASE_PATH", defaultString(cfg.Database.Path, "smart-presence.db"))
	cfg.Web.Host = envString("WEB_HOST", defaultString(cfg.Web.Host, "0.0.0.0"))
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	if env := os.Getenv("WEB_ALLOWED_ORIGINS"); env != "" {
		cfg.Web.AllowedOrigins = splitList(env)
	}
	cfg.Vision.ServiceURL = envString("VISION_SERVICE_URL", defaultString(cfg.Vision.ServiceURL, "http://127.0.0.1:8000"))
	if cfg.Vision.TimeoutSec == 0 {
		cfg.Vision.TimeoutSec = 10
	}
	cfg.Vision.TimeoutSec = envInt("VISION_TIMEOUT_SEC", cfg.Vision.TimeoutSec)
	cfg.Enroll.PeopleDir = envString("PEOPLE_DIR", defaultString(cfg.Enroll.PeopleDir, "people"))

	return cfg, nil
}

func defaultString(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}

// splitList parses a comma-separated env value into its non-empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
