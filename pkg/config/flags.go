package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags binds command-line flags to Config fields. A flag overrides the
// other sources only if it was set explicitly.
type Flags struct {
	FlagSet    *pflag.FlagSet
	ConfigPath *string
	EnvFile    *string

	defaults Config
	setters  map[string]func(*Config)
}

// NewFlags registers the flags shared by all the demos.
func NewFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{
		FlagSet:  fs,
		defaults: Default(),
		setters:  map[string]func(*Config){},
	}
	f.ConfigPath = fs.String("config", "", "path to a YAML configuration file")
	f.EnvFile = fs.String("env-file", DefaultEnvFile, "path to a .env file (ignored if absent)")
	f.String("log-level", "log level (trace, debug, info, warning, error, fatal, panic)", func(c *Config) *string { return &c.LogLevel })
	f.String("access-key", "AccessKey obtained from the console", func(c *Config) *string { return &c.Engine.AccessKey })
	f.String("model-path", "absolute path to the model file (default: the bundled one)", func(c *Config) *string { return &c.Engine.ModelPath })
	f.String("library-path", "absolute path to the dynamic library (default: the one for this platform)", func(c *Config) *string { return &c.Engine.LibraryPath })
	f.String("device", "device to run inference on: best, cpu, cpu:N, gpu, gpu:N", func(c *Config) *string { return &c.Engine.Device })
	f.String("root", "directory with the bundled library and model", func(c *Config) *string { return &c.Engine.Root })
	return f
}

func (f *Flags) String(name, usage string, field func(*Config) *string) {
	v := f.FlagSet.String(name, *field(&f.defaults), usage)
	f.setters[name] = func(c *Config) { *field(c) = *v }
}

func (f *Flags) Bool(name, usage string, field func(*Config) *bool) {
	v := f.FlagSet.Bool(name, *field(&f.defaults), usage)
	f.setters[name] = func(c *Config) { *field(c) = *v }
}

func (f *Flags) Int(name, usage string, field func(*Config) *int) {
	v := f.FlagSet.Int(name, *field(&f.defaults), usage)
	f.setters[name] = func(c *Config) { *field(c) = *v }
}

// Load must be called after the flag set is parsed.
func (f *Flags) Load() (*Config, error) {
	if !f.FlagSet.Parsed() {
		return nil, fmt.Errorf("the flags are not parsed, yet")
	}

	cfg := Default()
	if *f.ConfigPath != "" {
		if err := ReadYAMLFile(*f.ConfigPath, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ReadEnv(*f.EnvFile, &cfg); err != nil {
		return nil, err
	}
	for name, set := range f.setters {
		if f.FlagSet.Changed(name) {
			set(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
