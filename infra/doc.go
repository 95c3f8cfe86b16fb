// Package infra holds the adapters the scenario runner reports through:
// metric sinks (Prometheus, InfluxDB, SQLite), the MQTT requirement
// publisher, CSV datasets, logging and error monitoring. Adapters implement
// interfaces declared under core and never import app or cmd.
package infra
