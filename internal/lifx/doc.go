// Package lifx implements a LIFX LAN protocol client for luxbridge.
//
// This package speaks the binary LIFX LAN protocol directly over UDP,
// with no cloud dependency. It handles device discovery, identity
// collection, colour and power commands, and asynchronous state
// reconciliation.
//
// # Architecture
//
// One UDP socket serves all devices:
//
//	┌──────────────┐            ┌──────────────┐
//	│  dispatcher  │  SetColor  │  lifx.Client │   UDP 56700
//	│   / HTTP API │───────────►│  (this pkg)  │◄───────────► LIFX bulbs
//	└──────────────┘            └──────────────┘
//
// Commands are fire-and-forget: the protocol runs over UDP and the
// bridge sends high-frequency colour updates, so a lost packet is
// corrected by the next frame rather than retried.
//
// # Key Responsibilities
//
//   - Broadcast discovery and single-address probing
//   - Rate limiting: a minimum interval between outbound packets
//     protects bulb firmware from command bursts
//   - Device registry shared by discovery, dispatch, and the API
//   - State authority: freshly commanded colours outrank stale device
//     reports for a short window
//   - Excluding LIFX Switch relays, which answer discovery like bulbs
//     but cannot display colour
//
// # Usage
//
//	client, err := lifx.NewClient(lifx.Options{}, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	lights, err := client.Discover(ctx)
//	...
//	err = client.SetColor(lights[0].ID, lifx.RGBToHSBK(1, 0, 0, 3500), 20*time.Millisecond)
package lifx
