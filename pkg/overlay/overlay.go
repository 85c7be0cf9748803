// Package overlay defines the capability set the core transport
// subsystem consumes from the underlying cryptographic-overlay radio
// library. The library itself (identity management, path discovery,
// packet delivery over the radio plane) is out of scope; this package
// only names the interface PDS and ROS are built against, and the
// concrete production implementation lives outside this module.
package overlay

import "time"

// Direction selects whether a Destination is used to receive (In) or
// send (Out) packets.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

// Identity is an opaque cryptographic identity handle.
type Identity interface {
	// Fingerprint returns the identity's stable byte representation.
	// Not to be confused with a Destination's fingerprint.
	Fingerprint() []byte
}

// Destination is an opaque endpoint handle bound to an Identity, an
// application name, and an aspect (together forming the announce
// filter namespace).
type Destination interface {
	// Fingerprint is the value carried in announces and used to route
	// outbound packets. Per spec, this is produced by the transport
	// library and MUST NOT be derived locally from a public key.
	Fingerprint() []byte
}

// AnnounceCallback is invoked by the transport library's internal
// dispatch when an announce matching a registered aspect filter is
// received. destinationFingerprint names the sender; appData is
// whatever opaque bytes the sender attached.
type AnnounceCallback func(destinationFingerprint []byte, announcedIdentity Identity, appData []byte)

// PacketCallback is invoked by the transport library's internal
// dispatch when a packet addressed to a registered Destination
// arrives.
type PacketCallback func(payload []byte)

// Receipt is returned by SendWithReceipt and reports the eventual
// fate of one sent packet via callbacks fired on the transport
// library's own goroutines.
type Receipt interface {
	// SetDeliveryCallback registers the function invoked when the
	// remote end confirms receipt. rtt is the observed round-trip time.
	SetDeliveryCallback(func(rtt time.Duration))
	// SetTimeoutCallback registers the function invoked when no
	// confirmation arrives within the transport's own packet timeout.
	SetTimeoutCallback(func())
}

// Transport is the capability set consumed from the overlay radio
// library: identity/destination creation, announce send and receive,
// fingerprint-to-identity recall, and packet send-with-receipt plus
// inbound packet delivery.
type Transport interface {
	// CreateIdentity creates a new local cryptographic identity.
	CreateIdentity() (Identity, error)

	// CreateDestination builds a Destination bound to id, for the given
	// direction, scoped to appName/aspect.
	CreateDestination(id Identity, dir Direction, appName, aspect string) (Destination, error)

	// Announce broadcasts dest's presence with the given opaque
	// application data attached.
	Announce(dest Destination, appData []byte) error

	// RegisterAnnounceHandler subscribes cb to announces whose aspect
	// matches aspectFilter (e.g. "atak.cot").
	RegisterAnnounceHandler(aspectFilter string, cb AnnounceCallback) error

	// DeregisterAnnounceHandler removes a previously registered handler.
	DeregisterAnnounceHandler(aspectFilter string) error

	// RecallIdentity resolves a previously-announced destination
	// fingerprint back to an Identity, if the transport has one cached.
	// ROS also uses this as the "touch the API" pump described
	// in spec.md §4.6 step 4.
	RecallIdentity(fingerprint []byte) (Identity, bool)

	// SendWithReceipt transmits payload to dest as a single packet and
	// returns a Receipt for tracking delivery.
	SendWithReceipt(dest Destination, payload []byte) (Receipt, error)

	// RegisterPacketCallback subscribes cb to inbound packets addressed
	// to dest.
	RegisterPacketCallback(dest Destination, cb PacketCallback) error
}
