package metrics

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordFrame writes one dispatched DMX frame's measurements.
//
// Satisfies the dispatcher's metrics sink. The write is non-blocking;
// points are batched and sent asynchronously, so calling this from the
// frame path is safe even with InfluxDB slow or briefly unreachable.
//
// Parameters:
//   - universe: The DMX universe the frame arrived on
//   - mappings: How many enabled mappings the universe has
//   - commands: How many colour commands the frame produced
//   - elapsed: Wall time spent handling the frame
func (c *Client) RecordFrame(universe uint16, mappings, commands int, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sacn_frame",
		map[string]string{
			"universe": strconv.Itoa(int(universe)),
		},
		map[string]interface{}{
			"mappings":   mappings,
			"commands":   commands,
			"elapsed_us": elapsed.Microseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordDiscovery writes the outcome of a discovery sweep.
//
// Parameters:
//   - lights: Number of lights known after the sweep
//   - elapsed: How long the sweep took end to end
func (c *Client) RecordDiscovery(lights int, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"discovery",
		nil,
		map[string]interface{}{
			"lights":     lights,
			"elapsed_ms": elapsed.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("lifx_client",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"packets_sent": 1523, "packets_ignored": 2})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
