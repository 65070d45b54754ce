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
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/loadevidence/watch"
)

// Watch is the loadevidence watch commandline subcommand.
func Watch(global *globalOptions) *cobra.Command {
	opts := &extractOptions{}
	var settle time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch [flags] <intake-dir>",
		Short: "Load evidence dropped into an intake directory until interrupted",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireExisting(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logCloser, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer logCloser.Close()
			opts.apply(cmd, cfg)

			loader, summary, err := opts.loader(cfg, logger, time.Now())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			err = watch.New(args[0], settle, logger).Run(ctx, func(ctx context.Context, path string) error {
				if err := loader.Load(ctx, path); err != nil {
					cancel(err)
					return err
				}
				return nil
			})
			if cerr := loader.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if cause := context.Cause(ctx); err == nil && cause != nil && cause != ctx.Err() {
				err = cause
			}
			if err != nil {
				return err
			}
			// the interrupt ended the watch, packing must not see it
			return opts.complete(context.WithoutCancel(ctx), logger, loader, summary)
		},
	}
	opts.register(watchCmd)
	watchCmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "time a file must be unchanged before it is loaded")
	return watchCmd
}
