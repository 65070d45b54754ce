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

// Package config loads the loadevidence configuration.
//
// Values are layered: built in defaults, then the first YAML file found on
// the search path (or the one given explicitly), then a .env file and
// LOADEVIDENCE_* environment variables. Command line flags are applied last
// by the caller.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/imdario/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/forensicanalysis/loadevidence/audit"
)

// EnvPrefix prefixes all environment overrides, e.g. LOADEVIDENCE_BIN_TAR.
const EnvPrefix = "LOADEVIDENCE"

// Classifier names.
const (
	ClassifierMimetype = "mimetype"
	ClassifierFile     = "file"
)

// ErrInvalid is returned for configurations that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration of a run.
type Config struct {
	General    General `yaml:"general"`
	Bin        Bin     `yaml:"bin"`
	Extract    Extract `yaml:"extract"`
	Classifier string  `yaml:"classifier"`
	Summary    Summary `yaml:"summary"`
	Metrics    Metrics `yaml:"metrics"`

	// Source is the configuration file that was loaded, if any.
	Source string `yaml:"-"`
}

// General holds settings shared by all commands.
type General struct {
	LogDirectory string `yaml:"log_directory"`
}

// Bin holds the decoder executables.
type Bin struct {
	Tar    string `yaml:"tar"`
	Zstd   string `yaml:"zstd"`
	Unzip  string `yaml:"unzip"`
	SevenZ string `yaml:"sevenz"`
	Gzip   string `yaml:"gzip"`
	File   string `yaml:"file"`
}

// Decoders maps decoder names to executables.
func (b Bin) Decoders() map[string]string {
	return map[string]string{
		"tar":    b.Tar,
		"zstd":   b.Zstd,
		"unzip":  b.Unzip,
		"sevenz": b.SevenZ,
		"gzip":   b.Gzip,
	}
}

// Extract holds the traversal settings.
type Extract struct {
	MaxDepth      int           `yaml:"max_depth"`
	HashMaxSize   int64         `yaml:"hash_max_size"`
	HashAlgorithm string        `yaml:"hash_algorithm"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxOutput     int64         `yaml:"max_output"`
	RemoveSource  bool          `yaml:"remove_source"`
	KeepEmptyDir  bool          `yaml:"keep_empty_dir"`
	Unique        bool          `yaml:"unique"`
	MergeDir      bool          `yaml:"merge_dir"`
	AllowMIME     []string      `yaml:"allow_mime"`
	DenyMIME      []string      `yaml:"deny_mime"`
}

// Summary holds the CSV summary settings.
type Summary struct {
	InputPath bool `yaml:"input_path"`
}

// Metrics holds the metrics export settings.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built in configuration.
func Default() *Config {
	return &Config{
		General: General{LogDirectory: "logs"},
		Bin: Bin{
			Tar:    "/usr/bin/tar",
			Zstd:   "/usr/bin/zstd",
			Unzip:  "/usr/bin/unzip",
			SevenZ: "/usr/bin/7z",
			Gzip:   "/usr/bin/gzip",
			File:   "/usr/bin/file",
		},
		Extract: Extract{
			MaxDepth:      16,
			HashAlgorithm: audit.MD5,
			Timeout:       10 * time.Minute,
			MaxOutput:     64 * 1024,
		},
		Classifier: ClassifierMimetype,
	}
}

// SearchPath lists the configuration files tried when none is given.
func SearchPath() []string {
	paths := []string{"forensic.yml", "/etc/forensic/forensic.yml", "/opt/forensic/forensic.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append([]string{filepath.Join(home, ".config", "forensic", "forensic.yml")}, paths...)
	}
	return paths
}

// Load builds the configuration from defaults, the configuration file at
// path (or the first file on the search path when path is empty), envFile
// and the environment. An explicit path that does not exist is an error,
// a missing envFile is not.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range SearchPath() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(envFile); envFile != "" && err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path) // #nosec
	if err != nil {
		return errors.Wrapf(err, "read configuration %s", path)
	}

	// keys missing from the file keep the current value, keys set to a
	// zero value override it
	file := *c
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(ErrInvalid, "parse %s: %s", path, err)
	}

	if err := mergo.Merge(c, file, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		return errors.Wrap(err, "merge configuration")
	}
	c.Source = path
	return nil
}

// applyEnv overrides fields from variables named after their YAML keys,
// e.g. LOADEVIDENCE_EXTRACT_MAX_DEPTH. Values are parsed as YAML scalars;
// lists are comma separated.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	return walkFields(reflect.ValueOf(c).Elem(), EnvPrefix, func(name string, field reflect.Value) error {
		value, ok := lookup(name)
		if !ok {
			return nil
		}
		if field.Kind() == reflect.Slice {
			var items []string
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			field.Set(reflect.ValueOf(items))
			return nil
		}
		if err := yaml.Unmarshal([]byte(value), field.Addr().Interface()); err != nil {
			return errors.Wrapf(ErrInvalid, "%s: %s", name, err)
		}
		return nil
	})
}

func walkFields(v reflect.Value, prefix string, fn func(name string, field reflect.Value) error) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if key == "" || key == "-" {
			continue
		}
		name := prefix + "_" + strings.ToUpper(key)
		field := v.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := walkFields(field, name, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(name, field); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects unknown algorithms and classifiers and negative limits.
func (c *Config) Validate() error {
	if _, err := audit.NewHash(c.Extract.HashAlgorithm); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	switch c.Classifier {
	case ClassifierMimetype, ClassifierFile:
	default:
		return errors.Wrapf(ErrInvalid, "unknown classifier %q", c.Classifier)
	}
	if c.Extract.MaxDepth < 0 {
		return errors.Wrap(ErrInvalid, "extract.max_depth must not be negative")
	}
	if c.Extract.HashMaxSize < 0 {
		return errors.Wrap(ErrInvalid, "extract.hash_max_size must not be negative")
	}
	if c.Extract.Timeout < 0 {
		return errors.Wrap(ErrInvalid, "extract.timeout must not be negative")
	}
	if c.Extract.MaxOutput < 0 {
		return errors.Wrap(ErrInvalid, "extract.max_output must not be negative")
	}
	return nil
}

// LogFile returns the daily log file for t.
func (c *Config) LogFile(t time.Time) string {
	return filepath.Join(c.General.LogDirectory, t.Format("20060102")+".log")
}
