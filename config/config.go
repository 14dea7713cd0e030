// Package config loads the settings of the formflow CLI from a file, the
// environment (FORMFLOW_*) and built-in defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	formflow "github.com/reoring/formflow"
	g "github.com/reoring/formflow/dsl"
	"github.com/reoring/formflow/form"
	"github.com/reoring/formflow/i18n"
	"github.com/reoring/formflow/upload"
)

// Config represents the complete CLI configuration
type Config struct {
	Form    FormConfig    `mapstructure:"form"`
	Upload  UploadConfig  `mapstructure:"upload"`
	I18n    I18nConfig    `mapstructure:"i18n"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FormConfig controls validation timing
type FormConfig struct {
	// Mode is one of "onChange", "onSubmit", "onBlur"
	Mode string `mapstructure:"mode"`
	// ReValidateMode applies after the first submit attempt
	ReValidateMode string `mapstructure:"revalidate_mode"`
}

// UploadConfig holds selection constraints and transport settings
type UploadConfig struct {
	// MaxSize is a human-readable byte size ("10MB", "512KiB"); empty disables the limit
	MaxSize     string   `mapstructure:"max_size"`
	MaxFiles    int      `mapstructure:"max_files"`
	Accept      []string `mapstructure:"accept"`
	Multiple    bool     `mapstructure:"multiple"`
	BatchSize   int      `mapstructure:"batch_size"`
	Concurrency int      `mapstructure:"concurrency"`
	// Dir is where the local transport stores files
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// I18nConfig selects the message language
type I18nConfig struct {
	Lang string `mapstructure:"lang"`
	// Catalog is an optional YAML file layered over the built-in messages
	Catalog string `mapstructure:"catalog"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Form: FormConfig{Mode: "onSubmit", ReValidateMode: "onChange"},
		Upload: UploadConfig{
			MaxSize:     "10MB",
			MaxFiles:    5,
			Multiple:    true,
			Concurrency: 2,
			Dir:         "uploads",
		},
		I18n:    I18nConfig{Lang: "en"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("form.mode", d.Form.Mode)
	v.SetDefault("form.revalidate_mode", d.Form.ReValidateMode)
	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.max_files", d.Upload.MaxFiles)
	v.SetDefault("upload.accept", d.Upload.Accept)
	v.SetDefault("upload.multiple", d.Upload.Multiple)
	v.SetDefault("upload.batch_size", d.Upload.BatchSize)
	v.SetDefault("upload.concurrency", d.Upload.Concurrency)
	v.SetDefault("upload.dir", d.Upload.Dir)
	v.SetDefault("upload.base_url", d.Upload.BaseURL)
	v.SetDefault("i18n.lang", d.I18n.Lang)
	v.SetDefault("i18n.catalog", d.I18n.Catalog)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads path (optional) over the defaults, applies FORMFLOW_* environment
// overrides (e.g. FORMFLOW_UPLOAD_MAX_SIZE) and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("FORMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(context.Background()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validMode(s string) bool {
	_, err := form.ParseMode(s)
	return err == nil
}

func validSize(s string) bool {
	if s == "" {
		return true
	}
	_, err := humanize.ParseBytes(s)
	return err == nil
}

var schema = g.Object().
	Field("form", g.Object().
		Field("mode", g.String().Refine(validMode, "must be onChange, onSubmit or onBlur")).
		Field("revalidate_mode", g.String().Refine(validMode, "must be onChange, onSubmit or onBlur"))).
	Field("upload", g.Object().
		Field("max_size", g.String().Trim().Refine(validSize, "must be a byte size such as 10MB")).
		Field("max_files", g.Number().Int().NonNegative()).
		Field("batch_size", g.Number().Int().NonNegative()).
		Field("concurrency", g.Number().Int().Positive()).
		Field("dir", g.String().Trim().NonEmpty()).
		Field("base_url", g.String().Refine(func(s string) bool {
			return s == "" || strings.Contains(s, "://")
		}, "must be an absolute URL"))).
	Field("i18n", g.Object().Field("lang", g.String().Trim().NonEmpty())).
	Field("logging", g.Object().
		Field("level", g.Enum("debug", "info", "warn", "error")).
		Field("format", g.Enum("json", "console")))

// Validate checks the configuration and returns formflow.Issues keyed by the
// dotted setting name (e.g. "upload.max_size").
func (c *Config) Validate(ctx context.Context) error {
	_, err := schema.Parse(ctx, map[string]any{
		"form": map[string]any{"mode": c.Form.Mode, "revalidate_mode": c.Form.ReValidateMode},
		"upload": map[string]any{
			"max_size":    c.Upload.MaxSize,
			"max_files":   c.Upload.MaxFiles,
			"batch_size":  c.Upload.BatchSize,
			"concurrency": c.Upload.Concurrency,
			"dir":         c.Upload.Dir,
			"base_url":    c.Upload.BaseURL,
		},
		"i18n":    map[string]any{"lang": c.I18n.Lang},
		"logging": map[string]any{"level": c.Logging.Level, "format": c.Logging.Format},
	})
	if err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Constraints converts the upload section.
func (c *Config) Constraints() (upload.Constraints, error) {
	out := upload.Constraints{MaxFiles: c.Upload.MaxFiles, Accept: c.Upload.Accept, Multiple: c.Upload.Multiple}
	if s := strings.TrimSpace(c.Upload.MaxSize); s != "" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return upload.Constraints{}, fmt.Errorf("config: upload.max_size: %w", err)
		}
		out.MaxSize = int64(n)
	}
	return out, nil
}

// Modes returns the validation and re-validation modes.
func (c *Config) Modes() (mode, reValidate form.Mode, err error) {
	if mode, err = form.ParseMode(c.Form.Mode); err != nil {
		return 0, 0, err
	}
	if reValidate, err = form.ParseMode(c.Form.ReValidateMode); err != nil {
		return 0, 0, err
	}
	return mode, reValidate, nil
}

// Messages builds the message configuration, layering the optional catalog
// file over the built-in dictionary.
func (c *Config) Messages() (formflow.Config, error) {
	if c.I18n.Catalog == "" {
		return formflow.Config{Translator: i18n.New(c.I18n.Lang)}, nil
	}
	f, err := os.Open(c.I18n.Catalog)
	if err != nil {
		return formflow.Config{}, fmt.Errorf("config: i18n.catalog: %w", err)
	}
	defer f.Close()
	cat, err := i18n.LoadCatalog(f)
	if err != nil {
		return formflow.Config{}, err
	}
	return formflow.Config{Translator: i18n.WithCatalog(c.I18n.Lang, cat)}, nil
}
