package metrics

import (
	"io"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Paintersrp/procguard/internal/launch"
)

var (
	registry = prometheus.NewRegistry()

	launchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procguard",
		Name:      "launch_attempts_total",
		Help:      "Launch attempts by runtime and result (started or failed).",
	}, []string{"runtime", "result"})

	launchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procguard",
		Name:      "launch_failures_total",
		Help:      "Launch failures by runtime and platform error code.",
	}, []string{"runtime", "code"})

	launchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "procguard",
		Name:      "launch_duration_seconds",
		Help:      "Time spent creating the process or container, in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"runtime"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "procguard",
		Name:      "build_info",
		Help:      "Build metadata for the running procguard binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(launchAttempts, launchFailures, launchDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all procguard metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveLaunch records the outcome of one launch attempt. err is the value
// returned by the runtime; only *launch.Error counts as a failed launch.
func ObserveLaunch(rt string, d time.Duration, err error) {
	if rt == "" {
		rt = "unknown"
	}
	launchDuration.WithLabelValues(rt).Observe(d.Seconds())

	lerr, failed := launch.AsError(err)
	if !failed {
		if err == nil {
			launchAttempts.WithLabelValues(rt, "started").Inc()
		}
		return
	}
	launchAttempts.WithLabelValues(rt, "failed").Inc()
	code := lerr.Code()
	if code == "" {
		code = "unknown"
	}
	launchFailures.WithLabelValues(rt, code).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}

// WriteText writes every registered metric in the Prometheus text format.
func WriteText(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}
