// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

// Package cmd implements the loadevidence command line subcommands.
package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/loadevidence/config"
	"github.com/forensicanalysis/loadevidence/logging"
)

// timestamp layout of default output and summary names
const stamp = "2006-01-02_150405"

// globalOptions are shared by all subcommands.
type globalOptions struct {
	verbose bool
	quiet   bool
	config  string
	env     string
}

// Root returns the loadevidence command. Without a subcommand it behaves
// like extract.
func Root() *cobra.Command {
	global := &globalOptions{}
	extract := &extractOptions{}

	rootCmd := &cobra.Command{
		Use:   "loadevidence [flags] <input>...",
		Short: "Recursively extract and load forensic evidence",
		Long: `loadevidence walks evidence files and directories, expands every archive and
compressed file it recognizes by content, and copies all leaves into one
output tree. Every visited item is recorded in a CSV summary.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runExtract(cmd, global, extract, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&global.verbose, "verbose", "v", false, "print debug output")
	flags.BoolVarP(&global.quiet, "quiet", "q", false, "only print warnings and errors")
	flags.StringVarP(&global.config, "config", "c", "", "configuration file (default: search forensic.yml)")
	flags.StringVar(&global.env, "env", ".env", "environment file with LOADEVIDENCE_* overrides")
	extract.register(rootCmd)

	rootCmd.AddCommand(
		Extract(global),
		Validate(global),
		Pack(global),
		Ls(),
		Unpack(),
		Watch(global),
	)
	return rootCmd
}

// setup loads the configuration and creates the logger of a command.
func setup(cmd *cobra.Command, global *globalOptions) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(global.config, global.env)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(afero.NewOsFs(), cmd.ErrOrStderr(),
		logging.Level(global.verbose, global.quiet), cfg.LogFile(time.Now()))
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Source != "" {
		logger.Debug("loaded configuration", "file", cfg.Source)
	}
	return cfg, logger, closer, nil
}

func requireExisting(_ *cobra.Command, args []string) error {
	for _, arg := range args {
		if _, err := os.Stat(arg); os.IsNotExist(err) {
			return errors.Wrap(os.ErrNotExist, arg)
		}
	}
	return nil
}
