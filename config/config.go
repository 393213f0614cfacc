package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TAGGER"

// Source describes where the role marker and text live inside column 0 of a
// transcript export, and which column carries the tag.
type Source struct {
	MarkerOffset int    `mapstructure:"marker_offset" yaml:"marker_offset"`
	TextOffset   int    `mapstructure:"text_offset" yaml:"text_offset"`
	TagColumn    int    `mapstructure:"tag_column" yaml:"tag_column"`
	Continuation string `mapstructure:"continuation" yaml:"continuation"`
}

type Roles struct {
	Target string   `mapstructure:"target" yaml:"target"`
	Others []string `mapstructure:"others" yaml:"others"`
}

type Tree struct {
	MaxDepth      int     `mapstructure:"max_depth" yaml:"max_depth"`
	MinSupport    int     `mapstructure:"min_support" yaml:"min_support"`
	EntropyCutoff float64 `mapstructure:"entropy_cutoff" yaml:"entropy_cutoff"`
}

type Root struct {
	Pipeline struct {
		Name     string `mapstructure:"name" yaml:"name"`
		Version  string `mapstructure:"version" yaml:"version"`
		LogLvl   string `mapstructure:"log_level" yaml:"log_level"`
		Progress bool   `mapstructure:"progress" yaml:"progress"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	Paths struct {
		Labeled   string `mapstructure:"labeled" yaml:"labeled"`
		Unlabeled string `mapstructure:"unlabeled" yaml:"unlabeled"`
		Reports   string `mapstructure:"reports" yaml:"reports"`
		Extension string `mapstructure:"extension" yaml:"extension"`
	} `mapstructure:"paths" yaml:"paths"`
	Labeled   Source `mapstructure:"labeled" yaml:"labeled"`
	Unlabeled Source `mapstructure:"unlabeled" yaml:"unlabeled"`
	Roles     Roles  `mapstructure:"roles" yaml:"roles"`
	Split     struct {
		EvalRatio float64 `mapstructure:"eval_ratio" yaml:"eval_ratio"`
	} `mapstructure:"split" yaml:"split"`
	Tree Tree `mapstructure:"tree" yaml:"tree"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "therapy-tagger")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.progress", true)

	v.SetDefault("paths.labeled", "Manually_Classified")
	v.SetDefault("paths.unlabeled", "Unclassified")
	v.SetDefault("paths.reports", "")
	v.SetDefault("paths.extension", ".xlsx")

	v.SetDefault("labeled.marker_offset", 14)
	v.SetDefault("labeled.text_offset", 17)
	v.SetDefault("labeled.tag_column", 6)
	v.SetDefault("labeled.continuation", "full")

	// tag_column on the unlabeled side is where predictions are written
	v.SetDefault("unlabeled.marker_offset", 11)
	v.SetDefault("unlabeled.text_offset", 14)
	v.SetDefault("unlabeled.tag_column", 6)
	v.SetDefault("unlabeled.continuation", "full")

	v.SetDefault("roles.target", "T")
	v.SetDefault("roles.others", []string{"M", "F"})

	v.SetDefault("split.eval_ratio", 0.6)

	v.SetDefault("tree.max_depth", 100)
	v.SetDefault("tree.min_support", 0)
	v.SetDefault("tree.entropy_cutoff", 0.0)
}

// Load resolves the configuration from defaults, an optional config.yaml and
// TAGGER_* environment variables. An explicit path must exist; otherwise
// config/<CONFIG_ENV>/config.yaml and ./config.yaml are tried.
func Load(path string) (*Root, error) {
	// a missing .env is the normal case
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join("config", env))
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or env.
func Default() *Root {
	v := viper.New()
	setDefaults(v)
	var cfg Root
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Root) Validate() error {
	if math.IsNaN(c.Split.EvalRatio) || c.Split.EvalRatio < 0 || c.Split.EvalRatio > 1 {
		return fmt.Errorf("split.eval_ratio must be within [0,1], got %v", c.Split.EvalRatio)
	}
	if len([]rune(c.Roles.Target)) != 1 {
		return fmt.Errorf("roles.target must be a single character, got %q", c.Roles.Target)
	}
	for _, o := range c.Roles.Others {
		if len([]rune(o)) != 1 {
			return fmt.Errorf("roles.others entries must be single characters, got %q", o)
		}
	}
	for name, s := range map[string]Source{"labeled": c.Labeled, "unlabeled": c.Unlabeled} {
		if s.MarkerOffset < 0 || s.TextOffset < 0 {
			return fmt.Errorf("%s: offsets must not be negative", name)
		}
		switch s.Continuation {
		case "full", "trim":
		default:
			return fmt.Errorf("%s.continuation must be full or trim, got %q", name, s.Continuation)
		}
	}
	if c.Unlabeled.TagColumn < 0 {
		return fmt.Errorf("unlabeled.tag_column must not be negative")
	}
	return nil
}

// Write encodes the configuration as YAML.
func Write(w io.Writer, c *Root) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
