// Package metrics provides build observability hooks.
//
// Components receive a Recorder and call it unconditionally. NoopRecorder is
// the default; PrometheusRecorder backs the CLI's --metrics-file option, which
// writes the registry in the node_exporter textfile format after each build.
package metrics
