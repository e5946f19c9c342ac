package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-player-service/internal/domain"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Bank struct {
		BaseURL  string           `yaml:"baseUrl"`
		Dir      string           `yaml:"dir"`
		TTL      string           `yaml:"ttl"`
		Subjects []domain.Subject `yaml:"subjects"`
	} `yaml:"bank"`
	Quiz struct {
		ShuffleQuestions bool   `yaml:"shuffleQuestions"`
		ShuffleOptions   bool   `yaml:"shuffleOptions"`
		HistoryLimit     int    `yaml:"historyLimit"`
		SnapshotTTL      string `yaml:"snapshotTtl"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
