package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/keycalc"
	"github.com/zephyrtronium/keycalc/store"
)

func main() {
	a := &app{log: logrus.New()}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by the commands of one invocation.
type app struct {
	cfg *Config
	log *logrus.Logger
	reg *keycalc.Registry
	lib *store.Store

	configPath string
	storePath  string
	logLevel   string
	logFormat  string
	noLibrary  bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "keycalc",
		Short:         "Build and evaluate expressions one keystroke at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	fs := root.PersistentFlags()
	fs.StringVar(&a.configPath, "config", defaultConfigPath(), "configuration file")
	fs.StringVar(&a.storePath, "store", "", "library database (default from config)")
	fs.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warning, error")
	fs.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&a.noLibrary, "no-library", false, "do not open the library database")

	root.AddCommand(
		a.evalCmd(),
		a.replCmd(),
		a.constCmd(),
		a.funcCmd(),
		a.listCmd(),
		a.showCmd(),
		a.loadCmd(),
		a.rmCmd(),
		a.exportCmd(),
		a.importCmd(),
	)
	return root
}

// setup reads the configuration, configures logging, and builds the registry
// from the defaults, the configuration, and the library.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.storePath != "" {
		cfg.Store = a.storePath
	}
	if err := a.configureLog(); err != nil {
		return err
	}

	a.reg = keycalc.DefaultRegistry()
	cfg.registerConstants(a.reg)
	if !a.noLibrary {
		if a.lib, err = store.Open(cfg.Store); err != nil {
			return err
		}
		a.log.WithField("path", a.lib.Path()).Debug("opened library")
		if err := a.lib.LoadInto(a.reg); err != nil {
			a.log.WithError(err).Warn("some library definitions could not be loaded")
		}
	}
	if err := cfg.defineFunctions(a.reg); err != nil {
		a.log.WithError(err).Warn("some configured functions could not be defined")
	}
	return nil
}

func (a *app) configureLog() error {
	lvl, err := logrus.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	a.log.SetLevel(lvl)
	a.log.SetOutput(os.Stderr)
	switch a.cfg.LogFormat {
	case "", "text":
		a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		a.log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", a.cfg.LogFormat)
	}
	return nil
}

// close releases the library, if it is open.
func (a *app) close() error {
	if a.lib == nil {
		return nil
	}
	err := a.lib.Close()
	a.lib = nil
	return err
}

// library returns the open library, or an error if it is disabled.
func (a *app) library() (*store.Store, error) {
	if a.lib == nil {
		return nil, errors.New("library is disabled")
	}
	return a.lib, nil
}
