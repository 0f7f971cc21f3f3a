package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

// SlogLevel maps the configured log level onto slog. Unknown values fall
// back to info rather than failing startup.
func (t TelemetryConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(t.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// EvaluatorConfig selects and parameterizes the scoring backend. Mode is
// resolved once at startup; there is no per-request switching.
type EvaluatorConfig struct {
	Mode            string `yaml:"mode"` // mock, http, exec
	Endpoint        string `yaml:"endpoint"`
	Command         string `yaml:"command"`
	ScriptPath      string `yaml:"script_path"`
	DefaultProvider string `yaml:"default_provider"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

type UploadConfig struct {
	Directory        string   `yaml:"directory"`
	MaxFileSize      int64    `yaml:"max_file_size"`
	AllowedFormats   []string `yaml:"allowed_formats"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Evaluator   EvaluatorConfig `yaml:"evaluator"`
	Upload      UploadConfig    `yaml:"upload"`
	Store       StoreConfig     `yaml:"store"`
	Report      ReportConfig    `yaml:"report"`
}

func Default() Config {
	return Config{
		ServiceName: "c317-backend",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 3000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Evaluator: EvaluatorConfig{
			Mode:            "http",
			Endpoint:        "http://localhost:8000",
			Command:         "python",
			ScriptPath:      "./ia/process_audio.py",
			DefaultProvider: "gemini",
			TimeoutMS:       300000,
		},
		Upload: UploadConfig{
			Directory:        "./uploads",
			MaxFileSize:      50 * 1024 * 1024,
			AllowedFormats:   []string{".mp3", ".wav", ".ogg", ".m4a", ".flac", ".opus"},
			AllowedMimeTypes: []string{"audio/mpeg", "audio/wav", "audio/ogg", "audio/mp4", "audio/flac", "audio/opus"},
		},
		Store: StoreConfig{
			Path: "./data/consultations.db",
		},
		Report: ReportConfig{
			OutputDir: "./uploads",
		},
	}
}

// Load builds the immutable process configuration: defaults, then an optional
// .env file, then an optional YAML file, then C317_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "C317_SERVICE_NAME")
	overrideString(&cfg.Environment, "C317_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "C317_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "C317_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "C317_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "C317_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "C317_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "C317_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "C317_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "C317_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "C317_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "C317_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "C317_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "C317_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "C317_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "C317_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "C317_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Evaluator.Mode, "C317_EVALUATOR_MODE")
	// Legacy names kept for parity with existing deployments.
	overrideString(&cfg.Evaluator.Endpoint, "IA_API_URL")
	overrideString(&cfg.Evaluator.Command, "PYTHON_EXECUTABLE")
	overrideString(&cfg.Evaluator.Endpoint, "C317_EVALUATOR_ENDPOINT")
	overrideString(&cfg.Evaluator.Command, "C317_EVALUATOR_COMMAND")
	overrideString(&cfg.Evaluator.ScriptPath, "C317_EVALUATOR_SCRIPT_PATH")
	overrideString(&cfg.Evaluator.DefaultProvider, "C317_EVALUATOR_DEFAULT_PROVIDER")
	overrideInt(&cfg.Evaluator.TimeoutMS, "C317_EVALUATOR_TIMEOUT_MS")
	overrideString(&cfg.Upload.Directory, "C317_UPLOAD_DIRECTORY")
	overrideInt64(&cfg.Upload.MaxFileSize, "C317_UPLOAD_MAX_FILE_SIZE")
	overrideStringSlice(&cfg.Upload.AllowedFormats, "C317_UPLOAD_ALLOWED_FORMATS")
	overrideStringSlice(&cfg.Upload.AllowedMimeTypes, "C317_UPLOAD_ALLOWED_MIME_TYPES")
	overrideString(&cfg.Store.Path, "C317_STORE_PATH")
	overrideString(&cfg.Report.OutputDir, "C317_REPORT_OUTPUT_DIR")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Evaluator.Mode {
	case "mock", "http", "exec":
	default:
		return errors.New("evaluator.mode must be one of mock|http|exec")
	}
	if cfg.Evaluator.Mode == "http" && cfg.Evaluator.Endpoint == "" {
		return errors.New("evaluator.endpoint must be set when mode=http")
	}
	if cfg.Evaluator.Mode == "exec" {
		if cfg.Evaluator.Command == "" {
			return errors.New("evaluator.command must be set when mode=exec")
		}
		if cfg.Evaluator.ScriptPath == "" {
			return errors.New("evaluator.script_path must be set when mode=exec")
		}
	}
	if cfg.Evaluator.TimeoutMS < 0 {
		return errors.New("evaluator.timeout_ms must be >= 0")
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return errors.New("upload.max_file_size must be positive")
	}
	if len(cfg.Upload.AllowedFormats) == 0 {
		return errors.New("upload.allowed_formats must not be empty")
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	if cfg.Report.OutputDir == "" {
		return errors.New("report.output_dir must not be empty")
	}
	return nil
}
