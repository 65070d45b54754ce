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

// Package metrics counts the outcomes of a run with Prometheus metrics.
//
// The Collector is an audit.Recorder, so it sees exactly the records written
// to the summary. On Close the metrics can be written to a node exporter
// textfile for the textfile collector.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/forensicanalysis/loadevidence/audit"
)

const namespace = "loadevidence"

// Collector holds the run metrics in a private registry.
type Collector struct {
	registry *prometheus.Registry
	textfile string

	items    *prometheus.CounterVec
	errors   prometheus.Counter
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewCollector creates a collector. When textfile is set, Close writes the
// metrics there.
func NewCollector(textfile string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		textfile: textfile,
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Evidence items visited, by outcome.",
		}, []string{"status"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Evidence items flagged as errors.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Size of all visited evidence items.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decoder_duration_seconds",
			Help:      "Run time of external decoders.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"strategy"}),
	}
	c.registry.MustRegister(c.items, c.errors, c.bytes, c.duration)
	return c
}

// Registry exposes the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Record implements audit.Recorder.
func (c *Collector) Record(_ context.Context, r *audit.Record) error {
	c.items.WithLabelValues(r.Status).Inc()
	c.bytes.Add(float64(r.Size))
	if r.Failed() {
		c.errors.Inc()
	}
	if r.ExitCode != nil && r.Strategy != "" {
		c.duration.WithLabelValues(r.Strategy).Observe(r.Duration.Seconds())
	}
	return nil
}

// Close writes the textfile, if configured.
func (c *Collector) Close() error {
	if c.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(c.textfile, c.registry)
}
