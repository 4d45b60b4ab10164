package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/adorun"
	"github.com/loykin/adorun/internal/constants"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	// Provider type key: "pat", "basic" or "oauth2"
	Type   string                 `mapstructure:"type" yaml:"type"`
	Config map[string]interface{} `mapstructure:"config" yaml:"config"`
}

type ClientConfig struct {
	Timeout       string `mapstructure:"timeout" yaml:"timeout"`
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
}

type WaitConfig struct {
	Timeout  string `mapstructure:"timeout" yaml:"timeout"`
	Interval string `mapstructure:"interval" yaml:"interval"`
	Status   int    `mapstructure:"status" yaml:"status"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
}

type ConfigDoc struct {
	Server                     string             `mapstructure:"server" yaml:"server"`
	PersonalAccessToken        string             `mapstructure:"personal_access_token" yaml:"personal_access_token"`
	PersonalAccessTokenFromEnv string             `mapstructure:"personal_access_token_from_env" yaml:"personal_access_token_from_env"`
	Auth                       *AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Resource                   string             `mapstructure:"resource" yaml:"resource"`
	Operation                  string             `mapstructure:"operation" yaml:"operation"`
	ContinueOnFail             bool               `mapstructure:"continue_on_fail" yaml:"continue_on_fail"`
	MemoizeLookups             bool               `mapstructure:"memoize_lookups" yaml:"memoize_lookups"`
	Normalize                  string             `mapstructure:"normalize" yaml:"normalize"`
	Env                        []adorun.EnvVar    `mapstructure:"env" yaml:"env"`
	Parameters                 map[string]any     `mapstructure:"parameters" yaml:"parameters"`
	Client                     ClientConfig       `mapstructure:"client" yaml:"client"`
	Wait                       WaitConfig         `mapstructure:"wait" yaml:"wait"`
	Logging                    LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Store                      adorun.StoreConfig `mapstructure:"store" yaml:"store"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse %s: %w", clean, err)
	}
	return nil
}

// loadConfig reads the file named by the config flag (if any) and applies
// flag and ADORUN_* environment overrides on top.
func loadConfig(v *viper.Viper) (*ConfigDoc, error) {
	doc := &ConfigDoc{}
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		if err := doc.Load(path); err != nil {
			return nil, err
		}
	}
	doc.applyOverrides(v)
	return doc, nil
}

func (c *ConfigDoc) applyOverrides(v *viper.Viper) {
	override := func(key string, dst *string) {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*dst = s
		}
	}
	override("server", &c.Server)
	override("personal_access_token", &c.PersonalAccessToken)
	override("resource", &c.Resource)
	override("operation", &c.Operation)
	override("normalize", &c.Normalize)
	if v.IsSet("continue_on_fail") {
		c.ContinueOnFail = v.GetBool("continue_on_fail")
	}
	if v.IsSet("memoize_lookups") {
		c.MemoizeLookups = v.GetBool("memoize_lookups")
	}
	if v.GetBool("no_store") {
		c.Store.Type = ""
	}
}

// Credential resolves the token, preferring personal_access_token_from_env when that variable is set.
func (c *ConfigDoc) Credential() adorun.Credential {
	token := c.PersonalAccessToken
	if name := strings.TrimSpace(c.PersonalAccessTokenFromEnv); name != "" {
		if s, ok := os.LookupEnv(name); ok && s != "" {
			token = s
		}
	}
	return adorun.Credential{Server: strings.TrimSpace(c.Server), PersonalAccessToken: strings.TrimSpace(token)}
}

// AuthMethod builds the configured provider, or nil to use the token.
func (c *ConfigDoc) AuthMethod() (adorun.AuthMethod, error) {
	if c.Auth == nil || strings.TrimSpace(c.Auth.Type) == "" {
		return nil, nil
	}
	m, err := adorun.NewAuth(c.Auth.Type, c.Auth.Config)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return m, nil
}

func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, s)
	}
	return d, nil
}

func (c *ConfigDoc) ClientOptions() (adorun.ClientOptions, error) {
	timeout, err := parseDuration("client.timeout", c.Client.Timeout, constants.DefaultRequestTimeout)
	if err != nil {
		return adorun.ClientOptions{}, err
	}
	return adorun.ClientOptions{
		Timeout:            timeout,
		InsecureSkipVerify: c.Client.Insecure,
		MinTLSVersion:      c.Client.MinTLSVersion,
		MaxTLSVersion:      c.Client.MaxTLSVersion,
	}, nil
}

// Options assembles the library options for a run.
func (c *ConfigDoc) Options() (adorun.Options, error) {
	policy, err := adorun.ParseNormalize(c.Normalize)
	if err != nil {
		return adorun.Options{}, err
	}
	client, err := c.ClientOptions()
	if err != nil {
		return adorun.Options{}, err
	}
	method, err := c.AuthMethod()
	if err != nil {
		return adorun.Options{}, err
	}
	return adorun.Options{
		Credential:     c.Credential(),
		Auth:           method,
		Client:         client,
		ContinueOnFail: c.ContinueOnFail,
		MemoizeLookups: c.MemoizeLookups,
		Normalize:      policy,
	}, nil
}

func (c *ConfigDoc) parseLogLevel() (adorun.LogLevel, error) {
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "error":
		return adorun.LogLevelError, nil
	case "warn", "warning":
		return adorun.LogLevelWarn, nil
	case "info", "":
		return adorun.LogLevelInfo, nil
	case "debug":
		return adorun.LogLevelDebug, nil
	default:
		return adorun.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *adorun.Logger
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "json":
		logger = adorun.NewJSONLogger(level)
	case "color", "colour":
		logger = adorun.NewColorLogger(level)
	case "text", "":
		logger = adorun.NewLogger(level)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	adorun.EnableMasking(maskingEnabled)
	adorun.SetDefaultLogger(logger)

	logger.Debug("logging configured", "level", level.String(), "format", format, "mask_sensitive", maskingEnabled)
	return nil
}
