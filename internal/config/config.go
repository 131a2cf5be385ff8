// Package config resolves repldoc's settings from, in increasing priority:
// built-in defaults, a repldoc.yaml file, a .env file in the working
// directory, REPLDOC_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"repldoc/internal/example"
	"repldoc/internal/expression"
	"repldoc/internal/protocol"
	"repldoc/internal/repl"
)

// EnvPrefix prefixes every environment variable read by repldoc.
const EnvPrefix = "REPLDOC"

// Configuration keys.
const (
	KeyInterpreter    = "interpreter"
	KeySources        = "sources"
	KeyReplArgs       = "repl.args"
	KeyReplTag        = "repl.tag"
	KeyReplPrompt     = "repl.prompt"
	KeyReplResync     = "repl.resync"
	KeyExprCommand    = "expression.command"
	KeyExprTag        = "expression.tag"
	KeySkipMarker     = "skip_marker"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
	KeyDiff           = "diff"
	KeySummary        = "summary"
	defaultConfigName = "repldoc"
)

// Config is the resolved configuration of one run.
type Config struct {
	Interpreter string
	Sources     string
	Repl        ReplConfig
	Expression  ExpressionConfig
	SkipMarker  string
	LogLevel    string
	LogFile     string
	Diff        bool
	Summary     string
}

// ReplConfig configures interactive sessions.
type ReplConfig struct {
	Args   []string
	Tag    string
	Prompt string
	Resync protocol.ResyncPolicy
}

// ExpressionConfig configures one-shot evaluation.
type ExpressionConfig struct {
	Command []string
	Tag     string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the built-in default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInterpreter, "")
	v.SetDefault(KeySources, "")
	v.SetDefault(KeyReplArgs, repl.DefaultArgs)
	v.SetDefault(KeyReplTag, "nix-repl")
	v.SetDefault(KeyReplPrompt, example.DefaultPrompt)
	v.SetDefault(KeyReplResync, protocol.ResyncOnMismatch.String())
	v.SetDefault(KeyExprCommand, []string{})
	v.SetDefault(KeyExprTag, "nix")
	v.SetDefault(KeySkipMarker, "skip")
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDiff, false)
	v.SetDefault(KeySummary, "")
}

// ReadFiles layers the configuration file and the .env file of workDir onto
// v. configFile may be empty, in which case an optional repldoc.yaml in
// workDir is used.
func ReadFiles(v *viper.Viper, configFile, workDir string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(workDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return mergeDotEnv(v, filepath.Join(workDir, ".env"))
}

// mergeDotEnv merges REPLDOC_* entries of a .env file over the config file
// layer. A missing .env file is not an error.
func mergeDotEnv(v *viper.Viper, envPath string) error {
	data, err := os.ReadFile(envPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read .env file %s: %w", envPath, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", envPath, err)
	}

	merged := map[string]interface{}{}
	for _, key := range v.AllKeys() {
		value, ok := envMap[EnvName(key)]
		if !ok {
			continue
		}
		setNested(merged, strings.Split(key, "."), value)
	}
	if len(merged) == 0 {
		return nil
	}
	return v.MergeConfigMap(merged)
}

func setNested(m map[string]interface{}, path []string, value string) {
	for _, part := range path[:len(path)-1] {
		child, ok := m[part].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			m[part] = child
		}
		m = child
	}
	m[path[len(path)-1]] = value
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Resolve builds a validated Config from v.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Interpreter: v.GetString(KeyInterpreter),
		Sources:     v.GetString(KeySources),
		Repl: ReplConfig{
			Args:   v.GetStringSlice(KeyReplArgs),
			Tag:    v.GetString(KeyReplTag),
			Prompt: v.GetString(KeyReplPrompt),
		},
		Expression: ExpressionConfig{
			Command: v.GetStringSlice(KeyExprCommand),
			Tag:     v.GetString(KeyExprTag),
		},
		SkipMarker: v.GetString(KeySkipMarker),
		LogLevel:   v.GetString(KeyLogLevel),
		LogFile:    v.GetString(KeyLogFile),
		Diff:       v.GetBool(KeyDiff),
		Summary:    v.GetString(KeySummary),
	}

	if cfg.Interpreter == "" {
		return nil, errors.New("no interpreter configured")
	}
	if cfg.Sources == "" {
		return nil, errors.New("no sources pattern configured")
	}
	if cfg.Repl.Tag == "" || cfg.Expression.Tag == "" {
		return nil, errors.New("code block tags must not be empty")
	}
	if cfg.Repl.Tag == cfg.Expression.Tag {
		return nil, fmt.Errorf("repl and expression tags are both %q", cfg.Repl.Tag)
	}
	if cfg.Repl.Prompt == "" {
		return nil, errors.New("repl prompt must not be empty")
	}

	policy, err := protocol.ParseResyncPolicy(v.GetString(KeyReplResync))
	if err != nil {
		return nil, err
	}
	cfg.Repl.Resync = policy

	if len(cfg.Expression.Command) == 0 {
		cfg.Expression.Command = expression.CommandFor(cfg.Interpreter)
	}

	return cfg, nil
}
