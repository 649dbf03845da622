package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/logging"
)

// Config file structure
type configFile struct {
	TokenURL   string `json:"token_url"`
	GatewayURL string `json:"gateway_url"`
	DBPath     string `json:"db_path"`
	LogPath    string `json:"log_path"`
	Identity   string `json:"identity"`
}

var (
	loadedConfig configFile
	configMu     sync.RWMutex
)

func init() {
	loadConfig()
}

// loadConfig loads configuration from file
func loadConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	// Reset to empty
	loadedConfig = configFile{}

	configPath := os.Getenv("VOICECALL_CONFIG_PATH")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		configPath = filepath.Join(home, ".voicecall", "config.json")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return // Config file doesn't exist, use defaults
	}

	json.Unmarshal(data, &loadedConfig)
}

// reloadConfig reloads configuration (for testing)
func reloadConfig() {
	loadConfig()
}

// voicecallDir returns the base directory for voicecall files
func voicecallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/.voicecall"
	}
	return filepath.Join(home, ".voicecall")
}

// lookup resolves one setting with env var > config file > default precedence.
func lookup(envKey, fileValue, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

// TokenURL returns the token service base URL
// Priority: VOICECALL_TOKEN_URL env var > config file > default
func TokenURL() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return lookup("VOICECALL_TOKEN_URL", loadedConfig.TokenURL, "http://localhost:8000")
}

// GatewayURL returns the session gateway websocket URL
// Priority: VOICECALL_GATEWAY_URL env var > config file > default
func GatewayURL() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return lookup("VOICECALL_GATEWAY_URL", loadedConfig.GatewayURL, "ws://localhost:7880/rtc")
}

// DBPath returns the call-history database path
// Priority: VOICECALL_DB_PATH env var > config file > default
func DBPath() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return lookup("VOICECALL_DB_PATH", loadedConfig.DBPath, filepath.Join(voicecallDir(), "voicecall.db"))
}

// LogPath returns the log file path
// Priority: VOICECALL_LOG_PATH env var > config file > default
func LogPath() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return lookup("VOICECALL_LOG_PATH", loadedConfig.LogPath, logging.DefaultLogPath())
}

// Identity returns the participant display name sent to the token service
// Priority: VOICECALL_IDENTITY env var > config file > default
func Identity() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return lookup("VOICECALL_IDENTITY", loadedConfig.Identity, "User")
}
