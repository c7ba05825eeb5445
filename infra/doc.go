// Package infra contains the technical adapters of the scheduler: the MQTT
// telemetry client, metrics sinks and the persistent schedule store. These
// packages depend only on the interfaces defined under core.
package infra
