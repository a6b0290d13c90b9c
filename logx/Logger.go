// Package logx aggregates named scalar diagnostics and renders them
// as tabular epoch summaries, alongside structured event logging for
// the surrounding experiment.
package logx

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the values stored under one name since the last
// DumpTabular.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Count  int
}

// Logger accumulates named scalar series between tabular dumps.
// Store may be called any number of times per name; DumpTabular
// renders one row per name and clears everything.
type Logger struct {
	event  zerolog.Logger
	out    io.Writer
	series map[string][]float64
	order  []string
	staged map[string]float64
}

// New returns a Logger writing to out.
func New(out io.Writer) *Logger {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return &Logger{
		event:  zerolog.New(console).With().Timestamp().Logger(),
		out:    out,
		series: make(map[string][]float64),
		staged: make(map[string]float64),
	}
}

// Event returns the structured event logger.
func (l *Logger) Event() *zerolog.Logger {
	return &l.event
}

// Store records values under name for the current epoch.
func (l *Logger) Store(name string, values ...float64) {
	if _, ok := l.series[name]; !ok {
		if _, ok := l.staged[name]; !ok {
			l.order = append(l.order, name)
		}
	}
	l.series[name] = append(l.series[name], values...)
}

// LogTabular stages a single value that is reported as-is rather than
// summarized.
func (l *Logger) LogTabular(name string, value float64) {
	if _, ok := l.staged[name]; !ok {
		if _, ok := l.series[name]; !ok {
			l.order = append(l.order, name)
		}
	}
	l.staged[name] = value
}

// GetStats returns summary statistics of the values stored under
// name.
func (l *Logger) GetStats(name string) (Stats, bool) {
	values, ok := l.series[name]
	if !ok || len(values) == 0 {
		return Stats{}, false
	}

	s := Stats{
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Count: len(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s, true
}

// DumpTabular renders every stored series and staged value as an
// aligned table, then clears all stored values. Series report their
// mean, min, and max.
func (l *Logger) DumpTabular() {
	width := 0
	for _, name := range l.order {
		if len(name) > width {
			width = len(name)
		}
	}
	if width < 12 {
		width = 12
	}

	rule := strings.Repeat("-", width+22)
	fmt.Fprintln(l.out, rule)
	for _, name := range l.order {
		if value, ok := l.staged[name]; ok {
			fmt.Fprintf(l.out, "| %-*s | %15s |\n", width, name,
				format(value))
			continue
		}
		stats, ok := l.GetStats(name)
		if !ok {
			continue
		}
		fmt.Fprintf(l.out, "| %-*s | %15s |\n", width, name,
			format(stats.Mean))
		if stats.Count > 1 && stats.Min != stats.Max {
			fmt.Fprintf(l.out, "| %-*s | %15s |\n", width, "Min"+name,
				format(stats.Min))
			fmt.Fprintf(l.out, "| %-*s | %15s |\n", width, "Max"+name,
				format(stats.Max))
		}
	}
	fmt.Fprintln(l.out, rule)

	l.series = make(map[string][]float64)
	l.staged = make(map[string]float64)
	l.order = nil
}

// Names returns the names with stored values, sorted alphabetically.
func (l *Logger) Names() []string {
	names := append([]string(nil), l.order...)
	sort.Strings(names)
	return names
}

func format(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.6g", v)
}
