// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-clk.
//
// Provides:
//   - YAML configuration of work queues, clocks and their options
//   - Prometheus collectors for update passes and power-domain forcing
//   - Debug probe registration and JSON state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
