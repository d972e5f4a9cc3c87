package configuration

// Configuration is the decoded service configuration.
type Configuration struct {
	App       AppConfiguration       `mapstructure:"app" validate:"required"`
	Analytics AnalyticsConfiguration `mapstructure:"analytics" validate:"required"`
	Dashboard DashboardConfiguration `mapstructure:"dashboard" validate:"required"`
	Charts    ChartsConfiguration    `mapstructure:"charts"`
}

type AppConfiguration struct {
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	BasePath string `mapstructure:"base_path" validate:"required,startswith=/"`
}

type AnalyticsConfiguration struct {
	Transport       string `mapstructure:"transport" validate:"required,oneof=google http mock"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint" validate:"required_if=Transport http,omitempty,url"`
	APIKey          string `mapstructure:"api_key"`
	SamplingLevel   string `mapstructure:"sampling_level" validate:"required,oneof=DEFAULT SMALL LARGE"`
}

type DashboardConfiguration struct {
	DefaultView       string `mapstructure:"default_view" validate:"required,formstats_view"`
	DefaultPeriod     string `mapstructure:"default_period" validate:"required,formstats_period"`
	TemplatesManifest string `mapstructure:"templates_manifest"`
}

type ChartsConfiguration struct {
	Theme      string `mapstructure:"theme"`
	AssetsHost string `mapstructure:"assets_host" validate:"omitempty,url"`
}
