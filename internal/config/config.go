package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version understood by this build.
const CurrentVersion = 1

// Dir is the per-workspace directory holding config, ledger and tables.
const Dir = ".docindex"

// EnvPrefix prefixes environment overrides, e.g. DOCINDEX_SOURCE_PATH.
const EnvPrefix = "DOCINDEX"

// Config represents the complete docindex configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" validate:"eq=1"`

	Source    SourceConfig    `json:"source" mapstructure:"source"`
	Scan      ScanConfig      `json:"scan" mapstructure:"scan"`
	Artifacts ArtifactsConfig `json:"artifacts" mapstructure:"artifacts"`
	Tables    TablesConfig    `json:"tables" mapstructure:"tables"`
	Ledger    LedgerConfig    `json:"ledger" mapstructure:"ledger"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Display   DisplayConfig   `json:"display" mapstructure:"display"`
}

// SourceConfig describes the analyzed repository and where its snapshot lives
type SourceConfig struct {
	Repository string `json:"repository" mapstructure:"repository" validate:"required"`
	Host       string `json:"host" mapstructure:"host" validate:"required,hostname"`
	URL        string `json:"url" mapstructure:"url" validate:"required"`
	Branch     string `json:"branch" mapstructure:"branch" validate:"required"`
	Path       string `json:"path" mapstructure:"path" validate:"required"`
}

// ScanConfig controls file selection and the recognition heuristics
type ScanConfig struct {
	Extensions        []string `json:"extensions" mapstructure:"extensions" validate:"required,min=1,dive,startswith=."`
	Exclude           []string `json:"exclude" mapstructure:"exclude"`
	CommentLookback   int      `json:"commentLookback" mapstructure:"commentLookback" validate:"gte=0,lte=20"`
	ExtentFallback    int      `json:"extentFallback" mapstructure:"extentFallback" validate:"gte=1"`
	AuxiliaryPrefixes []string `json:"auxiliaryPrefixes" mapstructure:"auxiliaryPrefixes" validate:"dive,required"`
	RegistrationCalls []string `json:"registrationCalls" mapstructure:"registrationCalls" validate:"min=1,dive,required"`
	DispatchRoutine   string   `json:"dispatchRoutine" mapstructure:"dispatchRoutine" validate:"required"`
}

// ArtifactsConfig holds output paths of the generated indexes
type ArtifactsConfig struct {
	Functions string `json:"functions" mapstructure:"functions" validate:"required"`
	Defines   string `json:"defines" mapstructure:"defines" validate:"required"`
}

// TablesConfig points at the override/dispatch tables file; empty uses the built-in tables
type TablesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LedgerConfig contains run ledger settings
type LedgerConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path" validate:"required_if=Enabled true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" validate:"oneof=human json"`
	Level  string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error silent"`
}

// DisplayConfig controls report rendering
type DisplayConfig struct {
	MaxListed int  `json:"maxListed" mapstructure:"maxListed" validate:"gte=0"`
	Color     bool `json:"color" mapstructure:"color"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Source: SourceConfig{
			Repository: "alexbatalov/fallout2-ce",
			Host:       "github.com",
			URL:        "https://github.com/alexbatalov/fallout2-ce.git",
			Branch:     "main",
			Path:       filepath.Join(Dir, "fallout2-ce"),
		},
		Scan: ScanConfig{
			Extensions:        []string{".c", ".cc", ".cpp", ".h", ".hpp"},
			Exclude:           []string{"third_party", "build", "out"},
			CommentLookback:   5,
			ExtentFallback:    50,
			AuxiliaryPrefixes: []string{"interpreter", "program", "script", "sfall"},
			RegistrationCalls: []string{"interpreterRegisterOpcode"},
			DispatchRoutine:   "opMetarule",
		},
		Artifacts: ArtifactsConfig{
			Functions: filepath.Join("static", "data", "fallout2-ce-functions.json"),
			Defines:   filepath.Join("static", "data", "fallout2-ce-defines.json"),
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(Dir, "ledger.db"),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Display: DisplayConfig{
			MaxListed: 20,
			Color:     true,
		},
	}
}

// envKeys are the settings that may be overridden through DOCINDEX_* variables.
var envKeys = []string{
	"source.url",
	"source.branch",
	"source.path",
	"artifacts.functions",
	"artifacts.defines",
	"tables.path",
	"ledger.enabled",
	"ledger.path",
	"logging.level",
	"logging.format",
}

// LoadConfig loads configuration from explicitPath, or from .docindex/config.{json,yaml,toml}
// under workDir when explicitPath is empty. A missing config file yields the defaults.
func LoadConfig(workDir, explicitPath string) (*Config, error) {
	// .env never overrides variables already present in the environment
	_ = godotenv.Load(filepath.Join(workDir, ".env"))

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(workDir, Dir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case stderrors.As(err, &notFound):
			// defaults plus environment
		case explicitPath != "" && stderrors.Is(err, os.ErrNotExist):
			return nil, &ConfigError{Field: "config", Message: fmt.Sprintf("config file %s not found", explicitPath)}
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to .docindex/config.json under workDir
func (c *Config) Save(workDir string) error {
	dir := filepath.Join(workDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", Dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := "failed '" + fe.Tag() + "'"
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		return &ConfigError{Field: strings.TrimPrefix(fe.Namespace(), "Config."), Message: msg}
	}
	return &ConfigError{Field: "config", Message: err.Error()}
}

// ResolvePath makes p absolute relative to workDir.
func ResolvePath(workDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
