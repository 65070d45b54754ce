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

package loadevidence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/loadevidence/audit"
	"github.com/forensicanalysis/loadevidence/classify"
	"github.com/forensicanalysis/loadevidence/config"
	"github.com/forensicanalysis/loadevidence/pathalloc"
	"github.com/forensicanalysis/loadevidence/strategy"
)

// NotApplicable is recorded as output path of skipped duplicates.
const NotApplicable = "n/a"

// Extractor runs the decoder of a strategy.
type Extractor interface {
	Run(ctx context.Context, s *strategy.Strategy, input, output string) (*strategy.Result, error)
}

// Report summarizes a run.
type Report struct {
	Items      int
	Extracted  int
	Copied     int
	Duplicates int
	Errors     int
	Bytes      int64
}

// Loader walks evidence into one output tree. A Loader is one run: it owns
// the dedup ledger and the audit recorder, and must not be used
// concurrently.
type Loader struct {
	cfg        *config.Config
	fs         afero.Fs
	output     string
	classifier classify.Classifier
	table      *strategy.Table
	extractor  Extractor
	recorder   audit.Recorder
	logger     *slog.Logger
	alloc      *pathalloc.Allocator
	ledger     *Ledger
	allow      map[string]bool
	deny       map[string]bool
	report     Report
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs sets the filesystem evidence is read from and written to.
// External decoders always work on the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithClassifier replaces the classifier chosen by the configuration.
func WithClassifier(c classify.Classifier) Option {
	return func(l *Loader) { l.classifier = c }
}

// WithTable replaces the built in strategy table.
func WithTable(t *strategy.Table) Option {
	return func(l *Loader) { l.table = t }
}

// WithExtractor replaces the external decoder executor.
func WithExtractor(e Extractor) Option {
	return func(l *Loader) { l.extractor = e }
}

// WithRecorder sets where audit records go.
func WithRecorder(r audit.Recorder) Option {
	return func(l *Loader) { l.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a loader writing to the output directory, which is created
// if needed.
func New(cfg *config.Config, output string, opts ...Option) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return nil, errors.Wrap(err, "resolve output directory")
	}

	l := &Loader{
		cfg:      cfg,
		fs:       afero.NewOsFs(),
		output:   abs,
		recorder: audit.NewMulti(),
		logger:   slog.Default(),
		ledger:   NewLedger(),
		allow:    set(cfg.Extract.AllowMIME),
		deny:     set(cfg.Extract.DenyMIME),
	}
	for _, o := range opts {
		o(l)
	}

	if l.table == nil {
		l.table = strategy.NewTable(strategy.Strategies(), cfg.Bin.Decoders())
	}
	if l.classifier == nil {
		l.classifier = classify.NewMimetype(l.fs)
		if cfg.Classifier == config.ClassifierFile {
			l.classifier = classify.NewCommand(cfg.Bin.File)
		}
	}
	if l.extractor == nil {
		l.extractor = strategy.NewExecutor(l.table,
			strategy.WithTimeout(cfg.Extract.Timeout),
			strategy.WithMaxOutput(cfg.Extract.MaxOutput),
			strategy.WithLogger(l.logger),
		)
	}
	l.alloc = pathalloc.New(l.fs)

	if err := l.fs.MkdirAll(l.output, 0750); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	return l, nil
}

func set(items []string) map[string]bool {
	m := map[string]bool{}
	for _, item := range items {
		m[classify.Normalize(item)] = true
	}
	return m
}

// Output returns the absolute output directory.
func (l *Loader) Output() string {
	return l.output
}

// Report returns the counters of the run so far.
func (l *Loader) Report() Report {
	return l.report
}

// Ledger returns the dedup ledger of the run.
func (l *Loader) Ledger() *Ledger {
	return l.ledger
}

// Close closes the audit recorder.
func (l *Loader) Close() error {
	return l.recorder.Close()
}

// Load walks a top level input, a file or a directory. Per item failures
// are recorded and counted; the returned error is fatal for the run.
func (l *Loader) Load(ctx context.Context, target string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return errors.Wrap(err, "resolve input")
	}
	l.logger.Info("loading evidence", "target", abs)

	info, err := l.fs.Stat(abs)
	if err != nil {
		item := &Item{Path: abs, Logical: abs, Top: abs}
		return l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: errors.Wrap(err, "stat input")})
	}
	if info.IsDir() {
		return l.walkDir(ctx, abs, abs, abs, provenance{}, 0, nil, true)
	}
	item := &Item{Path: abs, Logical: abs, Top: abs, Size: info.Size()}
	if err := irregular(info); err != nil {
		return l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: err})
	}
	return l.visit(ctx, item)
}

// walkDir visits the children of dir depth first, in name order.
func (l *Loader) walkDir(ctx context.Context, dir, root, top string, origin provenance, depth int, lineage []string, input bool) error {
	infos, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		item := &Item{Path: dir, Root: root, Logical: origin.resolve(dir), Top: top, Depth: depth, origin: origin}
		return l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: errors.Wrap(err, "read directory")})
	}

	if len(infos) == 0 && l.cfg.Extract.KeepEmptyDir {
		l.keepEmptyDir(dir, root)
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(dir, info.Name())
		if input && p == l.output {
			l.logger.Warn("skipping output directory as input", "path", p)
			continue
		}

		item := &Item{
			Path: p, Root: root, Logical: origin.resolve(p), Top: top,
			Depth: depth, Lineage: lineage, origin: origin,
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := l.follow(p, top)
			if err != nil {
				if err := l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: err}); err != nil {
					return err
				}
				continue
			}
			if target.IsDir() {
				l.logger.Warn("skipping symlinked directory", "path", item.Logical)
				continue
			}
			info = target
		}

		if info.IsDir() {
			if err := l.walkDir(ctx, p, root, top, origin, depth, lineage, input); err != nil {
				return err
			}
			continue
		}

		if err := irregular(info); err != nil {
			if err := l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: err}); err != nil {
				return err
			}
			continue
		}
		item.Size = info.Size()
		if err := l.visit(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// follow resolves a symlink met during a walk. Links to files outside the
// top level input and the output tree are not followed.
func (l *Loader) follow(p, top string) (os.FileInfo, error) {
	target, err := l.fs.Stat(p)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedFile, "dangling symlink")
	}
	if target.IsDir() {
		return target, nil
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedFile, "resolve symlink: %s", err)
	}
	if !within(resolved, top) && !within(resolved, l.output) {
		return nil, errors.Wrapf(ErrUnsupportedFile, "symlink to %s leaves the evidence", resolved)
	}
	return target, nil
}

func within(path, dir string) bool {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// irregular rejects pipes, sockets and devices.
func irregular(info os.FileInfo) error {
	if info.Mode().IsRegular() {
		return nil
	}
	return errors.Wrapf(ErrUnsupportedFile, "not a regular file (mode %s)", info.Mode())
}

func (l *Loader) keepEmptyDir(dir, root string) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return
	}
	dest := filepath.Join(l.output, rel)
	if dest == dir {
		return
	}
	if exists, _ := afero.DirExists(l.fs, dest); exists {
		l.logger.Warn("can not load empty directory as destination path already exists", "path", dir, "destination", dest)
		return
	}
	if err := l.fs.MkdirAll(dest, 0750); err != nil {
		l.logger.Warn("can not load empty directory", "path", dir, "error", err)
	}
}

// visit processes one file: hash, classify, dedup, then extract or copy,
// and recurse into the extraction output.
func (l *Loader) visit(ctx context.Context, item *Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("processing", "path", item.Logical)

	if l.cfg.Extract.HashMaxSize == 0 || item.Size <= l.cfg.Extract.HashMaxSize {
		hash, err := l.hash(item.Path)
		if err != nil {
			return l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: errors.Wrap(ErrClassification, err.Error())})
		}
		item.Hash = hash
	}

	mime, err := l.classifier.Classify(item.Path)
	if err != nil {
		return l.finish(ctx, item, &Outcome{Status: StatusFailed, Err: err})
	}
	item.MIME = mime

	if l.cfg.Extract.Unique && item.Hash != "" && l.ledger.Seen(item.Hash) {
		return l.skipDuplicate(ctx, item)
	}

	s, ok := l.table.Dispatch(mime)
	if !ok || !l.permitted(mime) {
		return l.finish(ctx, item, l.copy(item))
	}

	if err := l.guard(item); err != nil {
		outcome := l.copy(item)
		if outcome.Err == nil {
			outcome.Err = err
		}
		outcome.Status = StatusFailed
		outcome.Strategy = s
		return l.finish(ctx, item, outcome)
	}

	outcome := l.extract(ctx, item, s)
	if err := l.finish(ctx, item, outcome); err != nil {
		return err
	}
	if outcome.Failed() {
		return nil
	}
	return l.descend(ctx, item, outcome.Output)
}

func (l *Loader) permitted(mime string) bool {
	if len(l.allow) > 0 && !l.allow[mime] {
		return false
	}
	return !l.deny[mime]
}

// guard stops the expansion of containers below the depth cap or inside
// themselves.
func (l *Loader) guard(item *Item) error {
	if limit := l.cfg.Extract.MaxDepth; limit > 0 && item.Depth >= limit {
		return errors.Wrapf(ErrRecursionLimit, "container at depth %d not expanded (max_depth %d)", item.Depth, limit)
	}
	if item.Hash != "" && item.descendsFrom(item.Hash) {
		return errors.Wrap(ErrRecursionLimit, "container contains itself")
	}
	return nil
}

func (l *Loader) relDir(item *Item) string {
	if item.Root == "" {
		return ""
	}
	rel, err := filepath.Rel(item.Root, item.Path)
	if err != nil {
		return ""
	}
	return filepath.Dir(rel)
}

func (l *Loader) extract(ctx context.Context, item *Item, s *strategy.Strategy) *Outcome {
	stem, _ := SplitName(filepath.Base(item.Path))
	mode := pathalloc.MkdirParent
	if s.Output == strategy.Directory {
		mode = pathalloc.Mkdir
	}
	if l.cfg.Extract.MergeDir {
		mode |= pathalloc.Merge
	}

	dest, err := l.alloc.Allocate(l.output, l.relDir(item), stem, "", mode)
	if err != nil {
		return &Outcome{Status: StatusFailed, Strategy: s, Err: err}
	}

	l.logger.Debug("extracting", "path", item.Logical, "strategy", s.Name, "output", dest)
	res, err := l.extractor.Run(ctx, s, item.Path, dest)
	if err != nil {
		l.logger.Error("extraction failed", "path", item.Logical, "strategy", s.Name, "error", err)
		return &Outcome{Status: StatusFailed, Output: dest, Strategy: s, Result: res, Err: err}
	}
	return &Outcome{Status: StatusExtracted, Output: dest, Strategy: s, Result: res}
}

// copy places a leaf at its location in the output tree. Copying a file
// onto itself is a no-op.
func (l *Loader) copy(item *Item) *Outcome {
	base := filepath.Base(item.Path)
	rel := l.relDir(item)
	dest := filepath.Join(l.output, rel, base)
	if dest == item.Path {
		return &Outcome{Status: StatusCopied, Output: dest}
	}

	stem, ext := SplitName(base)
	dest, err := l.alloc.Allocate(l.output, rel, stem, ext, pathalloc.MkdirParent)
	if err != nil {
		return &Outcome{Status: StatusFailed, Err: err}
	}
	if err := l.copyFile(item.Path, dest); err != nil {
		return &Outcome{Status: StatusFailed, Output: dest, Err: err}
	}
	return &Outcome{Status: StatusCopied, Output: dest}
}

func (l *Loader) copyFile(src, dest string) error {
	in, err := l.fs.Open(src)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer in.Close()

	out, err := l.fs.Create(dest)
	if err != nil {
		return errors.Wrap(err, "create destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "copy")
	}
	return errors.Wrap(out.Close(), "close destination")
}

func (l *Loader) skipDuplicate(ctx context.Context, item *Item) error {
	l.logger.Warn("file already imported: skipping duplicate", "path", item.Logical)
	if l.underOutput(item.Path) {
		if err := l.fs.Remove(item.Path); err != nil {
			l.logger.Warn("could not remove duplicate", "path", item.Path, "error", err)
		}
	}
	return l.finish(ctx, item, &Outcome{Status: StatusDuplicate, Output: NotApplicable, Err: ErrDuplicate})
}

func (l *Loader) underOutput(path string) bool {
	return strings.HasPrefix(path, l.output+string(filepath.Separator))
}

func (l *Loader) hash(path string) (string, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return audit.Sum(l.cfg.Extract.HashAlgorithm, f)
}

// descend walks the output of a successful extraction.
func (l *Loader) descend(ctx context.Context, item *Item, output string) error {
	origin := provenance{physical: output, logical: item.Logical}
	lineage := item.Lineage
	if item.Hash != "" {
		lineage = append(append([]string{}, item.Lineage...), item.Hash)
	}

	info, err := l.fs.Stat(output)
	if err != nil {
		child := &Item{Path: output, Root: l.output, Logical: item.Logical, Top: item.Top, Depth: item.Depth + 1, origin: origin}
		return l.finish(ctx, child, &Outcome{Status: StatusFailed, Err: errors.Wrap(err, "stat extraction output")})
	}
	if info.IsDir() {
		return l.walkDir(ctx, output, l.output, item.Top, origin, item.Depth+1, lineage, false)
	}
	child := &Item{
		Path: output, Root: l.output, Logical: origin.resolve(output), Top: item.Top,
		Size: info.Size(), Depth: item.Depth + 1, Lineage: lineage, origin: origin,
	}
	if err := irregular(info); err != nil {
		return l.finish(ctx, child, &Outcome{Status: StatusFailed, Err: err})
	}
	return l.visit(ctx, child)
}

// finish registers, records and counts the outcome of an item.
func (l *Loader) finish(ctx context.Context, item *Item, outcome *Outcome) error {
	if outcome.Status != StatusFailed && outcome.Status != StatusDuplicate && item.Hash != "" {
		l.ledger.Register(item.Hash)
	}

	l.report.Items++
	l.report.Bytes += item.Size
	switch outcome.Status {
	case StatusExtracted:
		l.report.Extracted++
	case StatusCopied:
		l.report.Copied++
	case StatusDuplicate:
		l.report.Duplicates++
	case StatusFailed:
		l.report.Errors++
		l.logger.Error("processing failed", "path", item.Logical, "error", outcome.Err)
	}

	if err := l.recorder.Record(ctx, l.record(item, outcome)); err != nil {
		return errors.Wrap(err, "write audit record")
	}

	if l.cfg.Extract.RemoveSource && !item.nested() && outcome.Status != StatusFailed &&
		outcome.Status != StatusDuplicate && outcome.Output != item.Path {
		if err := l.fs.Remove(item.Path); err != nil {
			l.logger.Warn("could not remove source", "path", item.Path, "error", err)
		}
	}
	return nil
}

func (l *Loader) record(item *Item, outcome *Outcome) *audit.Record {
	base := filepath.Base(item.Path)
	_, ext := SplitName(base)
	r := &audit.Record{
		InputPath:     item.Logical,
		TopInput:      item.Top,
		FileName:      base,
		Extension:     ext,
		OutputPath:    outcome.Output,
		MIME:          item.MIME,
		Size:          item.Size,
		Hash:          item.Hash,
		HashAlgorithm: l.cfg.Extract.HashAlgorithm,
		Status:        string(outcome.Status),
		Depth:         item.Depth,
	}
	if outcome.Strategy != nil {
		r.Strategy = outcome.Strategy.Name
	}

	switch {
	case outcome.Result != nil:
		r.ExitCode = audit.Int(outcome.Result.ExitCode)
		r.Error = audit.Bool(outcome.Failed())
		r.Stdout = outcome.Result.Stdout
		r.Stderr = outcome.Result.Stderr
		r.Duration = outcome.Result.Duration
	case outcome.Failed():
		r.Error = audit.Bool(true)
		if outcome.Err != nil {
			r.Stderr = outcome.Err.Error()
		}
	}
	return r
}

// String renders the report for the end of run log line.
func (r Report) String() string {
	return fmt.Sprintf("%d items: %d extracted, %d copied, %d duplicates, %d errors",
		r.Items, r.Extracted, r.Copied, r.Duplicates, r.Errors)
}
