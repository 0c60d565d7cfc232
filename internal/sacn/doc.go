// Package sacn implements a streaming ACN (E1.31) receiver for luxbridge.
//
// E1.31 carries DMX512 lighting data over IP networks. Consoles and
// lighting software transmit one packet per universe per frame, either
// to the universe's multicast group (239.255.hi.lo) or unicast to a
// known receiver.
//
// # Key Responsibilities
//
//   - Join the multicast group for each configured universe
//   - Accept unicast frames addressed directly to this host
//   - Validate the ACN root layer and DMX start code
//   - Filter preview data and unconfigured universes
//   - Hand decoded frames to a caller-supplied handler
//
// The receiver performs no merging or sequence arbitration between
// competing sources; frames are delivered in arrival order and the
// newest data wins downstream.
//
// # Usage
//
//	rx := sacn.NewReceiver("", sacn.DefaultPort, []uint16{1, 2}, handleFrame, logger)
//	if err := rx.Start(); err != nil {
//	    return err
//	}
//	defer rx.Stop()
package sacn
