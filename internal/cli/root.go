// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the inflight command line.
package cli

import (
	"fmt"
	"io"

	"github.com/apex/log"
	apexcli "github.com/apex/log/handlers/cli"
	"github.com/gogama/inflight/internal/config"
	"github.com/spf13/cobra"
)

type app struct {
	cfgFile string
	verbose bool

	registry *config.Registry
	cfg      *config.Config

	level  *levelHandler
	logger *log.Logger
}

// NewRootCommand returns the inflight root command. Results are written
// to the command's output stream and log messages to logOut.
func NewRootCommand(logOut io.Writer) *cobra.Command {
	a := &app{
		registry: config.NewRegistry(),
		level:    newLevelHandler(apexcli.New(logOut), log.InfoLevel),
	}
	a.logger = &log.Logger{Handler: a.level, Level: log.DebugLevel}

	rootCmd := &cobra.Command{
		Use:          "inflight",
		Short:        "Issue HTTP requests with bounded lifetimes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.inflight/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	flags.Int("concurrency", 0, "maximum blocking requests in flight with --sync")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(a.newGetCommand(), a.newHeadCommand(), a.newPostCommand())
	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{
		"concurrency":  "concurrency",
		"metrics.addr": "metrics-addr",
	} {
		if err := a.registry.BindFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	cfg, err := a.registry.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err = a.applyLogLevel(cfg); err != nil {
		return err
	}

	a.registry.Watch(func(cfg *config.Config) {
		if err := a.applyLogLevel(cfg); err != nil {
			a.logger.Warnf("ignoring log level: %s", err)
			return
		}
		a.logger.Infof("reloaded config from %s", a.registry.ConfigFile())
	}, func(err error) {
		a.logger.Warnf("%s", err)
	})

	a.logger.WithFields(log.Fields{
		"config_file": a.registry.ConfigFile(),
		"concurrency": cfg.Concurrency,
		"http2":       cfg.HTTP.HTTP2,
		"timeout":     cfg.Timeouts.Default,
	}).Debug("configuration loaded")
	return nil
}

func (a *app) applyLogLevel(cfg *config.Config) error {
	if a.verbose {
		a.level.set(log.DebugLevel)
		return nil
	}
	lvl, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.level.set(lvl)
	return nil
}
