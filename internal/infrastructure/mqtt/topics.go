package mqtt

import "fmt"

// TopicPrefix is the base for all bridge topics.
const TopicPrefix = "luxbridge"

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.LightState("d073d5123456")
//	// Returns: "luxbridge/light/d073d5123456/state"
type Topics struct{}

// Status returns the bridge availability topic. Online/offline
// announcements and the Last Will are published here, retained.
//
// Example: luxbridge/status
func (Topics) Status() string {
	return fmt.Sprintf("%s/status", TopicPrefix)
}

// DispatchStatus returns the topic for dispatch worker state
// transitions (stopped/running), published retained.
//
// Example: luxbridge/dispatch/status
func (Topics) DispatchStatus() string {
	return fmt.Sprintf("%s/dispatch/status", TopicPrefix)
}

// DispatchCommand returns the topic the bridge listens on for remote
// start/stop commands. Payload is the bare word "start" or "stop".
//
// Example: luxbridge/dispatch/command
func (Topics) DispatchCommand() string {
	return fmt.Sprintf("%s/dispatch/command", TopicPrefix)
}

// Discovery returns the topic for discovery sweep summaries.
//
// Example: luxbridge/discovery
func (Topics) Discovery() string {
	return fmt.Sprintf("%s/discovery", TopicPrefix)
}

// LightState returns the topic for a single light's reported state.
//
// Example: luxbridge/light/d073d5123456/state
func (Topics) LightState(lightID string) string {
	return fmt.Sprintf("%s/light/%s/state", TopicPrefix, lightID)
}

// AllLightStates returns the wildcard pattern consumers subscribe to
// for every light state topic the bridge publishes.
//
// Pattern: luxbridge/light/+/state
func (Topics) AllLightStates() string {
	return fmt.Sprintf("%s/light/+/state", TopicPrefix)
}
