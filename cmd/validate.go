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
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/loadevidence/auditstore"
)

// ErrInvalidStore is returned by validate when flaws were found.
var ErrInvalidStore = errors.New("audit store has flaws")

// Validate is the loadevidence validate commandline subcommand.
func Validate(global *globalOptions) *cobra.Command {
	var noFail bool
	validateCommand := &cobra.Command{
		Use:   "validate <store>",
		Short: "Verify the output tree against an audit store",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireExisting(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, logCloser, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			store, err := auditstore.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			valErr, err := store.Validate(cmd.Context(), afero.NewOsFs())
			if err != nil {
				return err
			}
			if len(valErr) == 0 {
				logger.Info("audit store is valid", "store", args[0])
				return nil
			}

			for i, v := range valErr {
				valErr[i] = strings.ReplaceAll(v, "\"", "\\\"")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[\"%s\"]\n", strings.Join(valErr, "\", \""))
			if noFail {
				return nil
			}
			return errors.Wrapf(ErrInvalidStore, "%d flaws", len(valErr))
		},
	}
	validateCommand.Flags().BoolVar(&noFail, "no-fail", false, "return exit code 0")
	return validateCommand
}
