// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/vaulthub-tui/internal/credential"
	"github.com/jeranaias/vaulthub-tui/internal/logging"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vaulthub configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API        APIConfig        `toml:"api" json:"api"`
	Credential CredentialConfig `toml:"credential" json:"credential"`
	Routes     RoutesConfig     `toml:"routes" json:"routes"`
	Session    SessionConfig    `toml:"session" json:"session"`
	Log        LogConfig        `toml:"log" json:"log"`
	Journal    JournalConfig    `toml:"journal" json:"journal"`
	UI         UIConfig         `toml:"ui" json:"ui"`

	envErrs ValidateErrors
}

// APIConfig configures the transport client.
type APIConfig struct {
	// BaseURL is prefixed to every request path.
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs bounds each request, including reading the body.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	UserAgent string `toml:"user_agent" json:"user_agent"`

	// RequestsPerSecond limits outgoing requests; 0 means unlimited.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" json:"burst"`

	MaxResponseMB int `toml:"max_response_mb" json:"max_response_mb"`

	// SuccessCodes and AuthCodes are the envelope codes meaning success and
	// rejected credential.
	SuccessCodes []int `toml:"success_codes" json:"success_codes"`
	AuthCodes    []int `toml:"auth_codes" json:"auth_codes"`
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// MaxResponseSize returns the response body limit in bytes.
func (a APIConfig) MaxResponseSize() int64 {
	return int64(a.MaxResponseMB) * 1024 * 1024
}

// CredentialConfig selects the credential store backend.
type CredentialConfig struct {
	Backend       string `toml:"backend" json:"backend"`
	Path          string `toml:"path" json:"path"`
	Slot          string `toml:"slot" json:"slot"`
	RedisAddr     string `toml:"redis_addr" json:"redis_addr"`
	RedisDB       int    `toml:"redis_db" json:"redis_db"`
	RedisPassword string `toml:"redis_password" json:"redis_password"`

	// Watch resyncs the session when another process changes the token file.
	Watch bool `toml:"watch" json:"watch"`
}

// RoutesConfig names the routes the navigation guard redirects to.
type RoutesConfig struct {
	Login      string `toml:"login" json:"login"`
	Register   string `toml:"register" json:"register"`
	Landing    string `toml:"landing" json:"landing"`
	Enrollment string `toml:"enrollment" json:"enrollment"`
}

// SessionConfig holds client-side session settings.
type SessionConfig struct {
	// IdleTimeoutSecs logs the TUI out after inactivity; 0 disables it.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
}

// IdleTimeout returns the idle timeout as a duration.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSecs) * time.Second
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level    string `toml:"level" json:"level"`
	Path     string `toml:"path" json:"path"`
	Encoding string `toml:"encoding" json:"encoding"`
}

// JournalConfig configures the local SQLite journal.
type JournalConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled"`
	Path       string `toml:"path" json:"path"`
	MaxEntries int    `toml:"max_entries" json:"max_entries"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Language   string `toml:"language" json:"language"`
	NoticeSecs int    `toml:"notice_secs" json:"notice_secs"`
}

// NoticeDuration returns how long a toast stays visible.
func (u UIConfig) NoticeDuration() time.Duration {
	return time.Duration(u.NoticeSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".vaulthub"
	}
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8080/api",
			TimeoutSecs:       10,
			UserAgent:         "vaulthub-tui",
			RequestsPerSecond: 0,
			Burst:             1,
			MaxResponseMB:     10,
			SuccessCodes:      []int{200},
			AuthCodes:         []int{401},
		},
		Credential: CredentialConfig{
			Backend: credential.BackendFile,
			Path:    filepath.Join(dir, "token"),
			Slot:    credential.DefaultSlot,
			Watch:   true,
		},
		Routes: RoutesConfig{
			Login:      "/login",
			Register:   "/register",
			Landing:    "/vault",
			Enrollment: "/setup-security-pin",
		},
		Session: SessionConfig{
			IdleTimeoutSecs: 0,
		},
		Log: LogConfig{
			Level:    "info",
			Path:     filepath.Join(dir, "client.log"),
			Encoding: "json",
		},
		Journal: JournalConfig{
			Enabled:    true,
			Path:       filepath.Join(dir, "journal.db"),
			MaxEntries: 1000,
		},
		UI: UIConfig{
			Language:   "en",
			NoticeSecs: 4,
		},
	}
}

// SetDefaults fills zero values that have no meaning of their own.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = d.API.UserAgent
	}
	if c.API.Burst == 0 {
		c.API.Burst = d.API.Burst
	}
	if c.API.MaxResponseMB == 0 {
		c.API.MaxResponseMB = d.API.MaxResponseMB
	}
	if len(c.API.SuccessCodes) == 0 {
		c.API.SuccessCodes = d.API.SuccessCodes
	}
	if len(c.API.AuthCodes) == 0 {
		c.API.AuthCodes = d.API.AuthCodes
	}

	if c.Credential.Backend == "" {
		c.Credential.Backend = d.Credential.Backend
	}
	if c.Credential.Path == "" {
		c.Credential.Path = d.Credential.Path
	}
	if c.Credential.Slot == "" {
		c.Credential.Slot = d.Credential.Slot
	}

	if c.Routes.Login == "" {
		c.Routes.Login = d.Routes.Login
	}
	if c.Routes.Landing == "" {
		c.Routes.Landing = d.Routes.Landing
	}
	if c.Routes.Enrollment == "" {
		c.Routes.Enrollment = d.Routes.Enrollment
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = d.Log.Encoding
	}

	if c.Journal.Path == "" {
		c.Journal.Path = d.Journal.Path
	}
	if c.Journal.MaxEntries == 0 {
		c.Journal.MaxEntries = d.Journal.MaxEntries
	}

	if c.UI.Language == "" {
		c.UI.Language = d.UI.Language
	}
	if c.UI.NoticeSecs == 0 {
		c.UI.NoticeSecs = d.UI.NoticeSecs
	}
}

// Migrate upgrades configs written by older releases.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", CurrentVersion:
		c.Version = CurrentVersion
		return nil
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the vaulthub configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vaulthub"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ResolvePath returns explicit, else $VAULTHUB_CONFIG, else the first of the
// default TOML and JSON files that exists, else the default TOML path.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("VAULTHUB_CONFIG"); env != "" {
		return env, nil
	}
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: the file can hold the redis password.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load resolves the config path (see ResolvePath), loads .env, reads the
// file if it exists and applies environment overrides, defaults and
// validation. A missing file yields the defaults.
func Load(explicit string) (*Config, error) {
	if err := LoadEnvFile(""); err != nil {
		return nil, err
	}
	if explicit == "" {
		explicit = os.Getenv("VAULTHUB_CONFIG")
	}

	path, err := ResolvePath(explicit)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		if explicit != "" || !errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, statErr)
		}
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path, or to the default TOML file when path is empty.
// A .json suffix selects JSON.
// SECURITY: Files are written 0600 inside a 0700 directory.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := ConfigPathTOML()
		if err != nil {
			return err
		}
		path = p
	}

	var data []byte
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = b
	} else {
		var buf bytes.Buffer
		buf.WriteString("# vaulthub configuration file\n")
		buf.WriteString("# Generated by vaulthub - edit with care\n\n")
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = buf.Bytes()
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors when
// anything is wrong.
func (c *Config) Validate() error {
	errs := append(ValidateErrors(nil), c.envErrs...)
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 300 {
		add("api.timeout_secs", "must be between 1 and 300, got %d", c.API.TimeoutSecs)
	}
	if c.API.RequestsPerSecond < 0 {
		add("api.requests_per_second", "must not be negative")
	}
	if c.API.Burst < 1 {
		add("api.burst", "must be at least 1")
	}
	if c.API.MaxResponseMB < 1 || c.API.MaxResponseMB > 512 {
		add("api.max_response_mb", "must be between 1 and 512, got %d", c.API.MaxResponseMB)
	}
	for _, s := range c.API.SuccessCodes {
		for _, a := range c.API.AuthCodes {
			if s == a {
				add("api.auth_codes", "code %d is also a success code", a)
			}
		}
	}

	// Credential
	switch c.Credential.Backend {
	case credential.BackendFile:
		if c.Credential.Path == "" {
			add("credential.path", "required for the file backend")
		}
	case credential.BackendMemory:
	case credential.BackendRedis:
		if c.Credential.RedisAddr == "" {
			add("credential.redis_addr", "required for the redis backend")
		}
		if c.Credential.RedisDB < 0 {
			add("credential.redis_db", "must not be negative")
		}
	default:
		add("credential.backend", "must be one of file, memory, redis, got %q", c.Credential.Backend)
	}

	// Routes
	routes := map[string]string{
		"routes.login":      c.Routes.Login,
		"routes.landing":    c.Routes.Landing,
		"routes.enrollment": c.Routes.Enrollment,
	}
	if c.Routes.Register != "" {
		routes["routes.register"] = c.Routes.Register
	}
	for field, p := range routes {
		if !strings.HasPrefix(p, "/") {
			add(field, "must start with /, got %q", p)
		}
	}

	// Session
	if c.Session.IdleTimeoutSecs < 0 {
		add("session.idle_timeout_secs", "must not be negative")
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		add("log.encoding", "must be json or console, got %q", c.Log.Encoding)
	}

	// Journal
	if c.Journal.Enabled && c.Journal.Path == "" {
		add("journal.path", "required when the journal is enabled")
	}
	if c.Journal.MaxEntries < 1 {
		add("journal.max_entries", "must be at least 1")
	}

	// UI
	if !contains(notice.Languages, c.UI.Language) {
		add("ui.language", "must be one of %s, got %q", strings.Join(notice.Languages, ", "), c.UI.Language)
	}
	if c.UI.NoticeSecs < 1 {
		add("ui.notice_secs", "must be at least 1")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies VAULTHUB_* environment variables:
//   - VAULTHUB_API_URL: overrides api.base_url
//   - VAULTHUB_TIMEOUT: overrides api.timeout_secs
//   - VAULTHUB_CREDENTIAL_BACKEND: overrides credential.backend
//   - VAULTHUB_TOKEN_PATH: overrides credential.path
//   - VAULTHUB_REDIS_ADDR: overrides credential.redis_addr
//   - VAULTHUB_REDIS_PASSWORD: overrides credential.redis_password
//   - VAULTHUB_LOG_LEVEL: overrides log.level
//   - VAULTHUB_LANG: overrides ui.language
//
// Unparseable numbers are reported by Validate.
func (c *Config) ApplyEnvOverrides() {
	c.envErrs = nil

	if v := os.Getenv("VAULTHUB_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("VAULTHUB_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			c.envErrs = append(c.envErrs, ValidationError{Field: "VAULTHUB_TIMEOUT", Message: "must be a whole number of seconds"})
		} else {
			c.API.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("VAULTHUB_CREDENTIAL_BACKEND"); v != "" {
		c.Credential.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("VAULTHUB_TOKEN_PATH"); v != "" {
		c.Credential.Path = v
	}
	if v := os.Getenv("VAULTHUB_REDIS_ADDR"); v != "" {
		c.Credential.RedisAddr = v
	}
	if v := os.Getenv("VAULTHUB_REDIS_PASSWORD"); v != "" {
		c.Credential.RedisPassword = v
	}
	if v := os.Getenv("VAULTHUB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("VAULTHUB_LANG"); v != "" {
		c.UI.Language = strings.ToLower(v)
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type; integer lists take comma-separated values.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() || !field.CanInterface() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		strVal = strings.TrimSpace(strVal)
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.Int {
				var ints []int
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s == "" {
						continue
					}
					n, err := strconv.Atoi(s)
					if err != nil {
						return fmt.Errorf("invalid integer list: %v", err)
					}
					ints = append(ints, n)
				}
				field.Set(reflect.ValueOf(ints))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.timeout_secs",
		"api.user_agent",
		"api.requests_per_second",
		"api.burst",
		"api.max_response_mb",
		"api.success_codes",
		"api.auth_codes",
		"credential.backend",
		"credential.path",
		"credential.slot",
		"credential.redis_addr",
		"credential.redis_db",
		"credential.redis_password",
		"credential.watch",
		"routes.login",
		"routes.register",
		"routes.landing",
		"routes.enrollment",
		"session.idle_timeout_secs",
		"log.level",
		"log.path",
		"log.encoding",
		"journal.enabled",
		"journal.path",
		"journal.max_entries",
		"ui.language",
		"ui.notice_secs",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.API.SuccessCodes = append([]int(nil), c.API.SuccessCodes...)
	clone.API.AuthCodes = append([]int(nil), c.API.AuthCodes...)
	clone.envErrs = append(ValidateErrors(nil), c.envErrs...)
	return &clone
}

// Redacted returns a copy safe to print.
// SECURITY: the redis password never reaches logs or terminal output.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Credential.RedisPassword != "" {
		safe.Credential.RedisPassword = "[REDACTED]"
	}
	return safe
}

// String returns the redacted config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
