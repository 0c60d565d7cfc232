// Package metrics records frame-dispatch telemetry to InfluxDB.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched point writes
//   - Per-frame dispatch measurements (duration, commands issued)
//   - Discovery sweep summaries
//
// # Architecture
//
// Metrics are entirely optional. When disabled (the default) the
// dispatcher runs with a nil sink and pays nothing. When enabled, the
// write path stays non-blocking: points are buffered and flushed on an
// interval, so a slow or unreachable InfluxDB never back-pressures
// frame handling.
//
// Measurements:
//
//	sacn_frame — tag: universe; fields: mappings, commands, elapsed_us
//	discovery  — fields: lights, elapsed_ms
//
// # Usage
//
//	client, err := metrics.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // metrics.ErrDisabled when turned off in config
//	}
//	defer client.Close()
//
//	client.RecordFrame(1, 4, 2, 180*time.Microsecond)
package metrics
