package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	AppName = "nftroute"

	DefaultSetName             = "china_ip_route"
	DefaultFetchTimeoutSeconds = 10
	DefaultUserAgent           = AppName + "/1.0"
	DefaultBypassFile          = "clash-core-bypass.conf"
	DefaultCombinedFile        = "anti-ad-bypass.conf"
	DefaultManifestFile        = "config.yaml"

	EnvLogLevel     = "NFTROUTE_LOG_LEVEL"
	EnvConfigDir    = "NFTROUTE_CONFIG_DIR"
	EnvWorkDir      = "NFTROUTE_WORK_DIR"
	EnvSetName      = "NFTROUTE_SET_NAME"
	EnvFetchTimeout = "NFTROUTE_FETCH_TIMEOUT"
	EnvFetchRate    = "NFTROUTE_FETCH_RATE"
	EnvUserAgent    = "NFTROUTE_USER_AGENT"
	EnvManifest     = "NFTROUTE_MANIFEST"
)

type Config struct {
	ConfigDir           string
	WorkDir             string
	LogLevel            slog.Level
	SetName             string
	FetchTimeoutSeconds int
	// FetchRate is the number of requests per second; zero disables pacing.
	FetchRate    float64
	UserAgent    string
	Manifest     string
	BypassFile   string
	CombinedFile string
	Unsorted     bool `json:",omitempty"`

	Help bool `json:"-"`
}

func NewDefaultConfig() *Config {
	configDir, _ := UserConfigDir()
	return &Config{
		ConfigDir:           configDir,
		WorkDir:             ".",
		LogLevel:            slog.LevelInfo,
		SetName:             DefaultSetName,
		FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
		UserAgent:           DefaultUserAgent,
		Manifest:            DefaultManifestFile,
		BypassFile:          DefaultBypassFile,
		CombinedFile:        DefaultCombinedFile,
	}
}

func (c *Config) Load(configDir string) error {
	*c = *NewDefaultConfig()
	if configDir == "" {
		configDir, _ = UserConfigDir()
	}
	if configDir == "" {
		return fmt.Errorf("failed to determine config directory")
	}
	c.ConfigDir = configDir
	err := EnsureDir(c.ConfigDir)
	cfgPath := filepath.Join(c.ConfigDir, "config.json")
	if err != nil {
		return fmt.Errorf("failed to ensure config dir: %w", err)
	}
	if cfgFileInfo, err := os.Stat(cfgPath); err == nil && cfgFileInfo.IsDir() {
		return fmt.Errorf("config file path is a directory")
	} else if err == nil {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err = json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := c.Save(); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("failed to stat config path: %w", err)
	}

	return c.loadEnv()
}

// Save writes the config to disk
func (c *Config) Save() error {
	if c.ConfigDir == "" {
		return fmt.Errorf("config directory not set")
	}

	if err := EnsureDir(c.ConfigDir); err != nil {
		return fmt.Errorf("failed to ensure config dir: %w", err)
	}

	cfgPath := filepath.Join(c.ConfigDir, "config.json")
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err = os.WriteFile(cfgPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) loadEnv() error {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		c.ConfigDir = configDir
	}
	if workDir := os.Getenv(EnvWorkDir); workDir != "" {
		c.WorkDir = workDir
	}
	if setName := os.Getenv(EnvSetName); setName != "" {
		c.SetName = setName
	}
	if timeout := os.Getenv(EnvFetchTimeout); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid value for FetchTimeout: %s", timeout)
		}
		c.FetchTimeoutSeconds = seconds
	}
	if fetchRate := os.Getenv(EnvFetchRate); fetchRate != "" {
		perSecond, err := strconv.ParseFloat(fetchRate, 64)
		if err != nil || perSecond < 0 {
			return fmt.Errorf("invalid value for FetchRate: %s", fetchRate)
		}
		c.FetchRate = perSecond
	}
	if userAgent := os.Getenv(EnvUserAgent); userAgent != "" {
		c.UserAgent = userAgent
	}
	if manifest := os.Getenv(EnvManifest); manifest != "" {
		c.Manifest = manifest
	}
	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	return nil
}

// Pipeline derives the immutable pipeline configuration for one build run.
// Resources always start from DefaultResources.
func (c *Config) Pipeline() Pipeline {
	timeout := time.Duration(c.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultFetchTimeoutSeconds * time.Second
	}
	return Pipeline{
		Resources:    DefaultResources(),
		BypassFile:   c.BypassFile,
		CombinedFile: c.CombinedFile,
		SetName:      c.SetName,
		FetchTimeout: timeout,
		FetchRate:    c.FetchRate,
		UserAgent:    c.UserAgent,
		Sorted:       !c.Unsorted,
	}
}
