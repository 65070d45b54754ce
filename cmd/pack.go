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
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/loadevidence/sqlar"
)

// ErrUnsafeMember is returned by unpack for members that would be written
// outside the target directory.
var ErrUnsafeMember = errors.New("archive member escapes target directory")

// Pack is the loadevidence pack commandline subcommand.
func Pack(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <archive> <dir>",
		Short: "Bundle an output directory into a sqlite archive",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return requireExisting(cmd, args[1:])
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, logCloser, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			n, err := sqlar.Pack(cmd.Context(), afero.NewOsFs(), args[1], args[0])
			if err != nil {
				return err
			}
			logger.Info("packed output", "archive", args[0], "files", n)
			return nil
		},
	}
}

// Ls is the loadevidence ls commandline subcommand.
func Ls() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive>",
		Short: "List files in the sqlite archive",
		Args:  cobra.ExactArgs(1), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := sqlar.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			infos, err := archive.List()
			if err != nil {
				return err
			}
			for _, info := range infos {
				name := info.Path()
				if info.IsDir() {
					name += "/"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", info.Mode(), info.Size(), name)
			}
			return nil
		},
	}
}

// Unpack is the loadevidence unpack commandline subcommand.
func Unpack() *cobra.Command {
	var mode string
	unpackCmd := &cobra.Command{
		Use:   "unpack <archive> <dir>",
		Short: "Extract files from the sqlite archive",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := sqlar.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			infos, err := archive.List()
			if err != nil {
				return err
			}
			for _, info := range infos {
				if info.IsDir() {
					continue
				}
				dest, err := safeJoin(args[1], destinationPath(info.Path(), mode))
				if err != nil {
					return errors.Wrap(err, info.Path())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unpack '%s' to '%s'\n", info.Path(), dest)

				b, err := archive.ReadFile(info.Path())
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
					return errors.Wrap(err, "create directory")
				}
				if err := os.WriteFile(dest, b, info.Mode().Perm()|0600); err != nil {
					return errors.Wrap(err, "write file")
				}
			}
			return nil
		},
	}

	usage := `define the export filename and folder structure. can be one of:
folder (e.g. 'evidence/a/C/Users/user/AppData/Local/Google/Chrome/User Data/Default/History')
compact (e.g. 'evidence_a_C_User_user_AppD_Loca_Goog_Chro_User_Defa_History')
basename (e.g. 'History')
`
	unpackCmd.Flags().StringVar(&mode, "mode", "folder", usage)
	return unpackCmd
}

func destinationPath(fullPath string, mode string) string {
	switch mode {
	case "basename":
		return path.Base(fullPath)
	case "compact":
		return normalizeFilePath(fullPath)
	default:
		return strings.TrimLeft(fullPath, "/")
	}
}

// safeJoin joins a slash separated member name to dir and rejects names
// that leave it.
func safeJoin(dir, name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafeMember
	}
	return filepath.Join(dir, rel), nil
}

func first(s string, n int) string {
	if len(s) < n {
		n = len(s)
	}
	return s[:n]
}

func last(s string, n int) string {
	if len(s) < n {
		n = len(s)
	}
	return s[len(s)-n:]
}

func splitExt(filePath string) (nameOnly, ext string) {
	ext = path.Ext(filePath)
	nameOnly = filePath[:len(filePath)-len(ext)]
	return nameOnly, ext
}

// normalizeFilePath flattens a member path into one short file name.
func normalizeFilePath(filePath string) string {
	maxLength := 64
	maxSegmentLength := 4
	filePath = strings.TrimLeft(filePath, "/")
	pathSegments := strings.Split(filePath, "/")
	normalizedFilePath := strings.Join(pathSegments, "_")

	// get first 4 letters of every directory, while longer than maxLength
	for i := 0; i < len(pathSegments)-1 && len(normalizedFilePath) > maxLength; i++ {
		pathSegments[i] = first(pathSegments[i], maxSegmentLength)
		normalizedFilePath = strings.Join(pathSegments, "_")
	}

	if len(normalizedFilePath) > maxLength {
		// if still to long get first maxSegmentLength letters of filename + extension
		nameOnly, ext := splitExt(pathSegments[len(pathSegments)-1])
		pathSegments[len(pathSegments)-1] = first(nameOnly, maxSegmentLength) + ext
		normalizedFilePath = strings.Join(pathSegments, "_")
	}

	return last(normalizedFilePath, maxLength)
}
