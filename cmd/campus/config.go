package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultEndpoint = "http://localhost:8000/chat"
	configFile      = "config.toml"
	dbFile          = "campus.db"
	prefsFile       = "preferences.json"
	logFile         = "campus.log"
)

// settings is the resolved configuration of the command.
type settings struct {
	Answer      string `toml:"answer"`
	Endpoint    string `toml:"endpoint"`
	GeminiKey   string `toml:"gemini_api_key"`
	GeminiModel string `toml:"gemini_model"`
	Identity    string `toml:"identity"`
	FirebaseKey string `toml:"firebase_api_key"`
	DataDir     string `toml:"data_dir"`
	Notify      string `toml:"notify"`
	RedisAddr   string `toml:"redis_addr"`
	LogLevel    string `toml:"log_level"`
}

// envKeys maps environment variables to the settings they override.
var envKeys = []struct {
	name string
	dst  func(*settings) *string
}{
	{"CAMPUS_ANSWER", func(s *settings) *string { return &s.Answer }},
	{"CAMPUS_ENDPOINT", func(s *settings) *string { return &s.Endpoint }},
	{"GEMINI_API_KEY", func(s *settings) *string { return &s.GeminiKey }},
	{"CAMPUS_GEMINI_MODEL", func(s *settings) *string { return &s.GeminiModel }},
	{"CAMPUS_IDENTITY", func(s *settings) *string { return &s.Identity }},
	{"FIREBASE_API_KEY", func(s *settings) *string { return &s.FirebaseKey }},
	{"CAMPUS_DATA_DIR", func(s *settings) *string { return &s.DataDir }},
	{"CAMPUS_NOTIFY", func(s *settings) *string { return &s.Notify }},
	{"CAMPUS_REDIS_ADDR", func(s *settings) *string { return &s.RedisAddr }},
	{"CAMPUS_LOG_LEVEL", func(s *settings) *string { return &s.LogLevel }},
}

func defaultSettings(home string) settings {
	return settings{
		Answer:    "rest",
		Endpoint:  defaultEndpoint,
		Identity:  "local",
		DataDir:   filepath.Join(home, ".campus"),
		Notify:    "memory",
		RedisAddr: "localhost:6379",
		LogLevel:  "info",
	}
}

// loadFile decodes the TOML file at path over s. A missing file is only an
// error when required is set.
func loadFile(s *settings, path string, required bool) error {
	_, err := toml.DecodeFile(path, s)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist) && !required:
		return nil
	default:
		return fmt.Errorf("read config %s: %w", path, err)
	}
}

// loadDotenv loads a .env file into the process environment. Variables
// already set keep their values.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read %s: %w", path, err)
}

// applyEnv overrides s with the non-empty environment variables returned by
// getenv.
func applyEnv(s *settings, getenv func(string) string) {
	for _, k := range envKeys {
		if v := getenv(k.name); v != "" {
			*k.dst(s) = v
		}
	}
}

func (s settings) validate() error {
	switch s.Answer {
	case "rest":
		if s.Endpoint == "" {
			return errors.New("answer backend rest needs an endpoint (--endpoint or CAMPUS_ENDPOINT)")
		}
	case "gemini":
		if s.GeminiKey == "" {
			return errors.New("answer backend gemini needs GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown answer backend %q: must be \"rest\" or \"gemini\"", s.Answer)
	}

	switch s.Identity {
	case "local":
	case "firebase":
		if s.FirebaseKey == "" {
			return errors.New("identity backend firebase needs FIREBASE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown identity backend %q: must be \"firebase\" or \"local\"", s.Identity)
	}

	switch s.Notify {
	case "memory":
	case "redis":
		if s.RedisAddr == "" {
			return errors.New("notify backend redis needs an address (CAMPUS_REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("unknown notify backend %q: must be \"memory\" or \"redis\"", s.Notify)
	}

	if s.DataDir == "" {
		return errors.New("data dir is empty")
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
