package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/keycalc"
)

// Config is the keycalc configuration file.
type Config struct {
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
	// Store is the path of the library database.
	Store string `yaml:"store"`
	// Constants are registered before the library loads.
	Constants map[string]float64 `yaml:"constants"`
	// Functions are defined in order after the library loads.
	Functions []FuncConfig `yaml:"functions"`
}

// FuncConfig defines a function from text.
type FuncConfig struct {
	Name string `yaml:"name"`
	// Args orders the arguments. If empty, the arguments are the template's
	// variables in sorted order.
	Args []string `yaml:"args"`
	// Tokens is the template, split the same way as eval --text.
	Tokens string `yaml:"tokens"`
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "keycalc", "config.yaml")
}

func defaultStorePath() string {
	return filepath.Join(xdg.DataHome, "keycalc", "library.db")
}

// loadConfig reads the configuration at path. A missing file is only an
// error if the path was given explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	cfg := Config{LogLevel: "warning", LogFormat: "text"}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(err, "reading config")
	}
	if cfg.Store == "" {
		cfg.Store = defaultStorePath()
	}
	return &cfg, nil
}

// registerConstants registers the configured constants.
func (cfg *Config) registerConstants(reg *keycalc.Registry) {
	names := make([]string, 0, len(cfg.Constants))
	for name := range cfg.Constants {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		reg.RegisterConstant(name, cfg.Constants[name])
	}
}

// defineFunctions defines the configured functions in order.
func (cfg *Config) defineFunctions(reg *keycalc.Registry) error {
	var errs error
	for _, f := range cfg.Functions {
		if err := f.define(reg); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "config function %q", f.Name))
		}
	}
	return errs
}

func (f FuncConfig) define(reg *keycalc.Registry) error {
	toks, err := keycalc.TokenizeString(f.Tokens)
	if err != nil {
		return err
	}
	p := keycalc.NewParser(reg)
	if err := p.ParseAll(toks); err != nil {
		return err
	}
	_, err = define(reg, f.Name, f.Args, p.Root())
	return err
}

// define registers a function with arguments in the given order, or in sorted
// order if none are given.
func define(reg *keycalc.Registry, name string, args []string, tmpl *keycalc.Node) (keycalc.Value, error) {
	if len(args) == 0 {
		return reg.DefineInferred(name, tmpl)
	}
	m := make(map[string]int, len(args))
	for i, a := range args {
		a = strings.TrimSpace(a)
		if _, ok := m[a]; ok {
			return keycalc.Value{}, errors.Errorf("argument %q given twice", a)
		}
		m[a] = i
	}
	return reg.Define(name, m, tmpl)
}
