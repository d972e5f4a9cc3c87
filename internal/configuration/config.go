package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstats/components/formstats"
)

// EnvPrefix marks environment variables read into the configuration.
// Nested keys use "__", so FORMSTATS_APP__PORT sets app.port.
const EnvPrefix = "FORMSTATS_"

// ConfigFileEnv names an explicit configuration file.
const ConfigFileEnv = EnvPrefix + "CONFIG_FILE"

// ConfigFileSearchPaths are tried in order when no file is named.
var ConfigFileSearchPaths = []string{"formstats.yaml", "config/formstats.yaml"}

var (
	ErrLoad    = errors.New("configuration: load failed")
	ErrInvalid = errors.New("configuration: invalid")
)

// Options controls where configuration is read from.
type Options struct {
	// Path overrides the search paths and ConfigFileEnv.
	Path string
	// Overrides holds dotted keys, such as "analytics.transport", set by
	// command-line flags. They win over every other layer.
	Overrides map[string]any
	Logger    *zap.Logger
	Now       func() time.Time
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.port":      8080,
		"app.log_level": "info",
		"app.base_path": "/admin",

		"analytics.transport":      "google",
		"analytics.sampling_level": formstats.DefaultSamplingLevel,

		"dashboard.default_view":   "production",
		"dashboard.default_period": "30daysAgo",
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}

func resolvePath(opts Options) string {
	if opts.Path != "" {
		return opts.Path
	}
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}
	for _, path := range ConfigFileSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readFileConfig(k *koanf.Koanf, opts Options) error {
	path := resolvePath(opts)
	if path == "" {
		opts.Logger.Debug("no configuration file found")
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	opts.Logger.Info("read configuration file", zap.String("path", path))
	return nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.Join(strings.Split(strings.ToLower(s), "__"), ".")
}

func readEnvVars(k *koanf.Koanf) error {
	return k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
}

func readOverrides(k *koanf.Koanf, overrides map[string]any) error {
	set := make(map[string]any, len(overrides))
	for key, value := range overrides {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		set[key] = value
	}
	if len(set) == 0 {
		return nil
	}
	return k.Load(confmap.Provider(set, "."), nil)
}

// Read layers defaults, the YAML file, FORMSTATS_* variables and flag
// overrides, then decodes and validates the result. Empty string overrides
// are skipped.
func Read(opts Options) (Configuration, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return Configuration{}, fmt.Errorf("%w: defaults: %w", ErrLoad, err)
	}
	if err := readFileConfig(k, opts); err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := readEnvVars(k); err != nil {
		return Configuration{}, fmt.Errorf("%w: environment: %w", ErrLoad, err)
	}
	if err := readOverrides(k, opts.Overrides); err != nil {
		return Configuration{}, fmt.Errorf("%w: overrides: %w", ErrLoad, err)
	}

	var config Configuration
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return Configuration{}, fmt.Errorf("%w: decode: %w", ErrLoad, err)
	}
	if err := Validate(config, opts.Now()); err != nil {
		return Configuration{}, err
	}
	return config, nil
}

// Validate checks config with the struct tags plus the view and period
// rules of the dashboard.
func Validate(config Configuration, now time.Time) error {
	validate := validator.New()
	_ = validate.RegisterValidation("formstats_view", func(fl validator.FieldLevel) bool {
		_, ok := formstats.LookupView(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("formstats_period", func(fl validator.FieldLevel) bool {
		_, err := formstats.ParsePeriodDays(fl.Field().String(), now)
		return err == nil
	})
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Settings returns the dashboard defaults described by the configuration.
func (c Configuration) Settings() formstats.Settings {
	settings := formstats.DefaultSettings()
	if view, ok := formstats.LookupView(c.Dashboard.DefaultView); ok {
		settings.View = view
	}
	if c.Dashboard.DefaultPeriod != "" {
		settings.StartPeriod = c.Dashboard.DefaultPeriod
	}
	if c.Analytics.SamplingLevel != "" {
		settings.SamplingLevel = c.Analytics.SamplingLevel
	}
	return settings
}

// ChartOptions returns the chart markup options.
func (c Configuration) ChartOptions() formstats.ChartOptions {
	return formstats.ChartOptions{Theme: c.Charts.Theme, AssetsHost: c.Charts.AssetsHost}
}
