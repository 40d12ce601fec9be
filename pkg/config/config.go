// Package config assembles the demo configuration from (in the increasing
// order of priority) built-in defaults, a YAML file, a .env file, the
// environment (KOALA_*) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/caarlos0/env/v6"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/joho/godotenv"
	"github.com/xaionaro-go/koala/pkg/delaycheck"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix      = "KOALA_"
	DefaultEnvFile = ".env"
)

type Engine struct {
	AccessKey   string `yaml:"access_key"   env:"ACCESS_KEY"`
	ModelPath   string `yaml:"model_path"   env:"MODEL_PATH"`
	LibraryPath string `yaml:"library_path" env:"LIBRARY_PATH"`
	Device      string `yaml:"device"       env:"DEVICE"`

	// Root is the directory the default library and model paths are resolved against.
	Root string `yaml:"root" env:"ROOT"`
}

type File struct {
	InputPath  string `yaml:"input_path"  env:"INPUT_PATH"`
	OutputPath string `yaml:"output_path" env:"OUTPUT_PATH"`
	CheckDelay bool   `yaml:"check_delay" env:"CHECK_DELAY"`

	// DelaySyncer is the shift estimator used by CheckDelay.
	DelaySyncer string `yaml:"delay_syncer" env:"DELAY_SYNCER"`
}

type Mic struct {
	AudioDeviceIndex    int    `yaml:"audio_device_index"    env:"AUDIO_DEVICE_INDEX"`
	OutputPath          string `yaml:"output_path"           env:"MIC_OUTPUT_PATH"`
	ReferenceOutputPath string `yaml:"reference_output_path" env:"REFERENCE_OUTPUT_PATH"`
	Monitor             bool   `yaml:"monitor"               env:"MONITOR"`
	TrackDelay          bool   `yaml:"track_delay"           env:"TRACK_DELAY"`
}

type Config struct {
	LogLevel           string `yaml:"log_level"             env:"LOG_LEVEL"`
	NetPprofListenAddr string `yaml:"net_pprof_listen_addr" env:"NET_PPROF_LISTEN_ADDR"`

	Engine Engine `yaml:"engine"`
	File   File   `yaml:"file"`
	Mic    Mic    `yaml:"mic"`
}

func Default() Config {
	return Config{
		LogLevel: logger.LevelWarning.String(),
		Engine: Engine{
			Device: "best",
		},
		File: File{
			DelaySyncer: delaycheck.DefaultSyncer,
		},
		Mic: Mic{
			AudioDeviceIndex: -1,
		},
	}
}

// LoggerLevel parses LogLevel.
func (cfg *Config) LoggerLevel() (logger.Level, error) {
	var level logger.Level
	if err := level.Set(cfg.LogLevel); err != nil {
		return 0, fmt.Errorf("invalid log level '%s': %w", cfg.LogLevel, err)
	}
	return level, nil
}

func (cfg *Config) Validate() error {
	if _, err := cfg.LoggerLevel(); err != nil {
		return err
	}
	if cfg.Mic.AudioDeviceIndex < -1 {
		return fmt.Errorf("audio device index must be -1 (default device) or a non-negative index, got %d", cfg.Mic.AudioDeviceIndex)
	}
	if !slices.Contains(delaycheck.Syncers(), cfg.File.DelaySyncer) {
		return fmt.Errorf("unknown delay syncer '%s', expected one of %v", cfg.File.DelaySyncer, delaycheck.Syncers())
	}
	if cfg.File.InputPath != "" && cfg.File.InputPath == cfg.File.OutputPath {
		return fmt.Errorf("the input and the output paths are the same: '%s'", cfg.File.InputPath)
	}
	return nil
}

// ReadYAML overlays the YAML document from r onto cfg. Unknown keys are rejected.
func ReadYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		return fmt.Errorf("unable to decode YAML: %w", err)
	}
}

func ReadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()
	if err := ReadYAML(f, cfg); err != nil {
		return fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return nil
}

// ReadEnv loads the .env file (a missing one is ignored; it never overrides
// variables already set) and overlays the KOALA_* variables onto cfg.
func ReadEnv(envFile string, cfg *Config) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unable to load '%s': %w", envFile, err)
		}
	}
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("unable to parse the environment: %w", err)
	}
	return nil
}
