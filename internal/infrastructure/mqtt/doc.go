// Package mqtt provides MQTT client connectivity for luxbridge.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The broker is optional. When configured, the bridge announces its
// availability and dispatch state so home-automation systems (Home
// Assistant, Node-RED) can observe it without polling the HTTP API:
//
//	luxbridge/status           — online/offline, retained, LWT-backed
//	luxbridge/dispatch/status  — worker state transitions, retained
//	luxbridge/dispatch/command — inbound start/stop commands
//	luxbridge/discovery        — discovery sweep summaries
//	luxbridge/light/{id}/state — per-light reported state, retained
//
// # Security Considerations
//
//   - TLS is recommended off-LAN deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Announce a dispatch state change, retained
//	topic := mqtt.Topics{}.DispatchStatus()
//	client.Publish(topic, []byte(`{"state":"running"}`), 1, true)
package mqtt
