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

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/forensicanalysis/fsdoublestar"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/loadevidence"
	"github.com/forensicanalysis/loadevidence/audit"
	"github.com/forensicanalysis/loadevidence/auditstore"
	"github.com/forensicanalysis/loadevidence/config"
	"github.com/forensicanalysis/loadevidence/metrics"
	"github.com/forensicanalysis/loadevidence/sqlar"
)

// ErrItemsFailed is returned by extract when items were flagged as errors.
var ErrItemsFailed = errors.New("some items could not be processed")

type extractOptions struct {
	output       string
	summary      string
	store        string
	archive      string
	keepEmptyDir bool
	unique       bool
	mergeDir     bool
	removeSource bool
	maxDepth     int
	hashMaxSize  int64
	noFail       bool
}

func (o *extractOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.output, "output", "o", "", "output directory (default: extracted_<date>_<time>)")
	flags.StringVarP(&o.summary, "summary", "s", "", "CSV summary file (default: summary_<date>_<time>.csv)")
	flags.StringVar(&o.store, "store", "", "SQLite audit store to record items in")
	flags.StringVar(&o.archive, "archive", "", "pack the output directory into this SQLite archive")
	flags.BoolVarP(&o.keepEmptyDir, "keep-empty-dir", "k", false, "recreate empty directories in the output")
	flags.BoolVarP(&o.unique, "unique", "u", false, "skip files whose content was already loaded")
	flags.BoolVar(&o.mergeDir, "merge-dir", false, "extract into existing directories instead of suffixing them")
	flags.BoolVar(&o.removeSource, "remove-source", false, "remove top level inputs after loading")
	flags.IntVar(&o.maxDepth, "max-depth", 0, "maximum container nesting to expand, 0 for unlimited")
	flags.Int64Var(&o.hashMaxSize, "hash-max-size", 0, "only hash files up to this size in bytes, 0 for unlimited")
	flags.BoolVar(&o.noFail, "no-fail", false, "return exit code 0 even if items failed")
	_ = flags.MarkHidden("merge-dir")
}

// apply overrides the configuration with the flags that were set.
func (o *extractOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("keep-empty-dir") {
		cfg.Extract.KeepEmptyDir = o.keepEmptyDir
	}
	if flags.Changed("unique") {
		cfg.Extract.Unique = o.unique
	}
	if flags.Changed("merge-dir") {
		cfg.Extract.MergeDir = o.mergeDir
	}
	if flags.Changed("remove-source") {
		cfg.Extract.RemoveSource = o.removeSource
	}
	if flags.Changed("max-depth") {
		cfg.Extract.MaxDepth = o.maxDepth
	}
	if flags.Changed("hash-max-size") {
		cfg.Extract.HashMaxSize = o.hashMaxSize
	}
}

// Extract is the loadevidence extract commandline subcommand.
func Extract(global *globalOptions) *cobra.Command {
	opts := &extractOptions{}
	extractCmd := &cobra.Command{
		Use:   "extract [flags] <input>...",
		Short: "Extract and load evidence files and directories",
		Example: `  loadevidence extract -o loaded -u /cases/42/intake
  loadevidence extract --store audit.db "/cases/42/**/*.zip"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, global, opts, args)
		},
	}
	opts.register(extractCmd)
	return extractCmd
}

func runExtract(cmd *cobra.Command, global *globalOptions, opts *extractOptions, args []string) error {
	cfg, logger, logCloser, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	opts.apply(cmd, cfg)

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}

	loader, summary, err := opts.loader(cfg, logger, time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	for _, input := range inputs {
		if err = loader.Load(ctx, input); err != nil {
			break
		}
	}
	if cerr := loader.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return opts.complete(ctx, logger, loader, summary)
}

// loader creates the recorders and the loader of a run started at now.
func (o *extractOptions) loader(cfg *config.Config, logger *slog.Logger, now time.Time) (*loadevidence.Loader, string, error) {
	output := o.output
	if output == "" {
		output = "extracted_" + now.Format(stamp)
	}
	summary := o.summary
	if summary == "" {
		summary = "summary_" + now.Format(stamp) + ".csv"
	}

	recorder, err := recorders(cfg, summary, o.store)
	if err != nil {
		return nil, "", err
	}
	loader, err := loadevidence.New(cfg, output,
		loadevidence.WithRecorder(recorder),
		loadevidence.WithLogger(logger),
	)
	if err != nil {
		recorder.Close()
		return nil, "", err
	}
	return loader, summary, nil
}

// complete reports a closed run and packs its output if requested.
func (o *extractOptions) complete(ctx context.Context, logger *slog.Logger, loader *loadevidence.Loader, summary string) error {
	report := loader.Report()
	logger.Info("finished", "report", report.String(), "output", loader.Output(), "summary", summary)

	if o.archive != "" {
		n, err := sqlar.Pack(ctx, afero.NewOsFs(), loader.Output(), o.archive)
		if err != nil {
			return errors.Wrap(err, "pack output")
		}
		logger.Info("packed output", "archive", o.archive, "files", n)
	}

	if report.Errors > 0 && !o.noFail {
		return errors.Wrapf(ErrItemsFailed, "%d errors, see %s", report.Errors, summary)
	}
	return nil
}

// recorders opens the summary, the optional audit store and the metrics
// collector.
func recorders(cfg *config.Config, summary, store string) (audit.Recorder, error) {
	csv, err := audit.CreateCSV(afero.NewOsFs(), summary, cfg.Extract.HashAlgorithm, cfg.Summary.InputPath)
	if err != nil {
		return nil, err
	}
	multi := audit.NewMulti(csv)

	if store != "" {
		s, err := auditstore.New(store)
		if err != nil {
			csv.Close()
			return nil, errors.Wrap(err, "create audit store")
		}
		multi = append(multi, s)
	}
	return append(multi, metrics.NewCollector(cfg.Metrics.Textfile)), nil
}

// expandInputs resolves ** globs. Arguments without glob characters are
// kept even if they do not exist, so they show up as failed items.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			inputs = append(inputs, arg)
			continue
		}

		root, pattern := ".", filepath.ToSlash(arg)
		if filepath.IsAbs(arg) {
			root, pattern = string(filepath.Separator), strings.TrimPrefix(pattern, "/")
		}
		matches, err := fsdoublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %s", arg)
		}
		for _, match := range matches {
			inputs = append(inputs, filepath.Join(root, filepath.FromSlash(match)))
		}
	}
	return inputs, nil
}
