// ABOUTME: fitlog configuration management with backend selection.
// ABOUTME: Handles folders, planner and fetch settings, validation, and the storage backend factory.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/harperreed/fitlog/internal/charm"
	"github.com/harperreed/fitlog/internal/fetch"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/merge"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
)

var (
	// ErrConfigMissing is returned when a required file or setting is absent.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrConfigInvalid is returned when a setting has an unusable value.
	ErrConfigInvalid = errors.New("configuration invalid")
)

// Backends lists the storage backends OpenStorage understands.
var Backends = []string{"csv", "sqlite", "badger", "charm"}

// Config stores fitlog configuration.
type Config struct {
	// Backend selects the storage backend: "csv" (default), "sqlite", "badger", or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for normalized data.
	// CSV puts one folder per metric here; SQLite puts fitlog.db here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/fitlog.
	DataDir string `json:"data_dir,omitempty"`

	// ArchiveDir is the default input for `fitlog ingest`.
	ArchiveDir string `json:"archive_dir,omitempty"`

	// StagingDir holds raw API pages before they are merged.
	StagingDir string `json:"staging_dir,omitempty"`

	TokenFile    string `json:"token_file,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	APIBaseURL   string `json:"api_base_url,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`

	MaxGapDays          int      `json:"max_gap_days,omitempty"`
	UpdateRecentDays    int      `json:"update_recent_days,omitempty"`
	PriorityMetricTypes []string `json:"priority_metric_types,omitempty"`
	FetchMetricTypes    []string `json:"fetch_metric_types,omitempty"`
	ConfirmThreshold    int      `json:"confirm_threshold,omitempty"`
	RateLimitPerHour    int      `json:"rate_limit_per_hour,omitempty"`

	// MergePolicy overrides the merge policy per metric, e.g. {"steps": "compose"}.
	MergePolicy map[string]string `json:"merge_policy,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	CharmHost string `json:"charm_host,omitempty"`
}

// Default returns a config with every default spelled out, as written by `fitlog config init`.
func Default() *Config {
	return &Config{
		Backend:             "csv",
		DataDir:             storage.DataDir(),
		StagingDir:          defaultStagingDir(),
		TokenFile:           defaultTokenFile(),
		APIBaseURL:          fetch.DefaultBaseURL,
		TokenURL:            fetch.DefaultTokenURL,
		MaxGapDays:          planner.DefaultMaxGapDays,
		UpdateRecentDays:    planner.DefaultUpdateRecentDays,
		PriorityMetricTypes: metricNames(planner.DefaultPriorityMetrics),
		FetchMetricTypes:    metricNames(models.FetchableMetricTypes),
		ConfirmThreshold:    planner.DefaultConfirmThreshold,
		RateLimitPerHour:    fetch.DefaultRequestsPerHour,
		LogLevel:            "info",
	}
}

// GetBackend returns the configured backend, defaulting to "csv".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "csv"
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetArchiveDir returns the configured archive folder, or "" when unset.
func (c *Config) GetArchiveDir() string {
	return ExpandPath(c.ArchiveDir)
}

// GetStagingDir returns the staging folder, defaulting to the XDG cache directory.
func (c *Config) GetStagingDir() string {
	if c.StagingDir == "" {
		return defaultStagingDir()
	}
	return ExpandPath(c.StagingDir)
}

// GetTokenFile returns the OAuth token file, defaulting to token.json next to the config.
func (c *Config) GetTokenFile() string {
	if c.TokenFile == "" {
		return defaultTokenFile()
	}
	return ExpandPath(c.TokenFile)
}

// GetAPIBaseURL returns the web API base URL.
func (c *Config) GetAPIBaseURL() string {
	if c.APIBaseURL == "" {
		return fetch.DefaultBaseURL
	}
	return c.APIBaseURL
}

// GetTokenURL returns the OAuth token endpoint.
func (c *Config) GetTokenURL() string {
	if c.TokenURL == "" {
		return fetch.DefaultTokenURL
	}
	return c.TokenURL
}

// GetRateLimit returns the request budget per hour.
func (c *Config) GetRateLimit() int {
	if c.RateLimitPerHour <= 0 {
		return fetch.DefaultRequestsPerHour
	}
	return c.RateLimitPerHour
}

// GetConfirmThreshold returns the request count above which updates ask first.
func (c *Config) GetConfirmThreshold() int {
	if c.ConfirmThreshold <= 0 {
		return planner.DefaultConfirmThreshold
	}
	return c.ConfirmThreshold
}

// GetLogLevel returns the configured log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// PlannerOptions converts the planner settings. Unset lists keep the planner defaults.
func (c *Config) PlannerOptions() (planner.Options, error) {
	opts := planner.Options{
		MaxGapDays:       c.MaxGapDays,
		UpdateRecentDays: c.UpdateRecentDays,
		RequestsPerHour:  c.GetRateLimit(),
	}
	var err error
	if len(c.PriorityMetricTypes) > 0 {
		if opts.PriorityMetrics, err = models.ParseMetricTypes(c.PriorityMetricTypes); err != nil {
			return opts, fmt.Errorf("%w: priority_metric_types: %v", ErrConfigInvalid, err)
		}
	}
	if len(c.FetchMetricTypes) > 0 {
		if opts.FetchMetrics, err = models.ParseMetricTypes(c.FetchMetricTypes); err != nil {
			return opts, fmt.Errorf("%w: fetch_metric_types: %v", ErrConfigInvalid, err)
		}
	}
	return opts, nil
}

// MergeResolver builds the resolver from merge_policy overrides.
func (c *Config) MergeResolver() (*merge.Resolver, error) {
	policies, err := merge.ParsePolicies(c.MergePolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: merge_policy: %v", ErrConfigInvalid, err)
	}
	return merge.NewResolver(policies), nil
}

// Validate checks every setting and reports the first problem.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.GetBackend()) {
		return fmt.Errorf("%w: unknown backend %q (use one of %s)", ErrConfigInvalid, c.Backend, strings.Join(Backends, ", "))
	}
	for name, v := range map[string]int{
		"max_gap_days":        c.MaxGapDays,
		"update_recent_days":  c.UpdateRecentDays,
		"confirm_threshold":   c.ConfirmThreshold,
		"rate_limit_per_hour": c.RateLimitPerHour,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrConfigInvalid, name, v)
		}
	}
	if _, err := c.PlannerOptions(); err != nil {
		return err
	}
	fetchable := make(map[string]bool)
	for _, m := range models.FetchableMetricTypes {
		fetchable[string(m)] = true
	}
	for _, name := range c.FetchMetricTypes {
		if !fetchable[name] {
			return fmt.Errorf("%w: fetch_metric_types: %s cannot be fetched from the web API", ErrConfigInvalid, name)
		}
	}
	// Gaps in a priority metric become fetch tasks.
	for _, name := range c.PriorityMetricTypes {
		if !fetchable[name] {
			return fmt.Errorf("%w: priority_metric_types: %s cannot be fetched from the web API", ErrConfigInvalid, name)
		}
	}
	if _, err := c.MergeResolver(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrConfigInvalid, err)
	}
	return nil
}

// RequireFetch checks the settings needed to call the web API.
func (c *Config) RequireFetch() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client_id is not set; add it to %s", ErrConfigMissing, GetConfigPath())
	}
	if _, err := os.Stat(c.GetTokenFile()); err != nil {
		return fmt.Errorf("%w: token file %s not found; authorize fitlog and save the token there", ErrConfigMissing, c.GetTokenFile())
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Store implementation based on the configured backend.
func (c *Config) OpenStorage() (storage.Store, error) {
	backend := c.GetBackend()
	dataDir := c.GetDataDir()

	switch backend {
	case "csv":
		return storage.NewCSVStore(dataDir)
	case "sqlite":
		dbPath := filepath.Join(dataDir, "fitlog.db")
		return storage.Open(dbPath)
	case "badger":
		kv, err := storage.OpenBadger(filepath.Join(dataDir, "badger"))
		if err != nil {
			return nil, err
		}
		return storage.NewKVStore(kv), nil
	case "charm":
		client, err := charm.InitClient(c.CharmHost)
		if err != nil {
			return nil, fmt.Errorf("init charm client: %w", err)
		}
		return storage.NewKVStore(client), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfigInvalid, backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	return filepath.Join(configDir(), "config.json")
}

// Load reads config from the default path. A missing file yields defaults.
func Load() (*Config, error) {
	cfg, err := LoadFrom(GetConfigPath())
	if errors.Is(err, ErrConfigMissing) {
		return &Config{}, nil
	}
	return cfg, err
}

// LoadFrom reads and validates config from path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist; run `fitlog config init`", ErrConfigMissing, path)
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes config to path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func configDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fitlog")
}

func defaultTokenFile() string {
	return filepath.Join(configDir(), "token.json")
}

func defaultStagingDir() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(cacheDir, "fitlog", "staging")
}

func metricNames(ms []models.MetricType) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
