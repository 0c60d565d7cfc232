// Package dispatch connects incoming DMX frames to LIFX colour
// commands.
//
// The Dispatcher decodes each frame's mapped channel blocks into HSBK
// colours and fires them at the LIFX client, suppressing blocks whose
// values have not materially changed since the last send. The Worker
// owns the pipeline lifecycle: it builds a receiver and dispatcher
// from the current mapping set, and rebuilds them when mappings change
// while running.
//
// # Change Suppression
//
// Consoles transmit every universe continuously (typically 30-44 Hz)
// whether values changed or not. Forwarding every frame to every bulb
// would flood the radio side of the bulbs; instead each mapping's raw
// channel block is compared to the last block dispatched for it, and
// only material changes go out. 8-bit modes use a configurable
// per-channel threshold; 16-bit modes react to any combined-value
// change so slow console fades stay smooth.
//
// # Lifecycle
//
//	worker := dispatch.NewWorker(cfg, logger)
//	err := worker.Start()          // stopped -> running
//	err = worker.RestartIfRunning() // after a mapping mutation
//	worker.Stop()                   // running -> stopped
package dispatch
