// Package overlaytest provides an in-process fake of pkg/overlay.Transport
// for PDS/PB/ROS tests, standing in for the real radio-backed
// implementation spec.md treats as a consumed library.
//
// Several Transport instances sharing one *Network simulate several
// mesh nodes: an Announce on one node's Transport reaches every
// matching RegisterAnnounceHandler, the announcing node's own included,
// and SendWithReceipt on one
// node's Transport delivers to whichever node owns the addressed
// Destination.
package overlaytest

import (
	"fmt"
	"sync"
	"time"

	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
)

// Identity is the fake overlay.Identity: just a counter-derived
// fingerprint, since the fake never performs real cryptography.
type Identity struct {
	fp []byte
}

func (id *Identity) Fingerprint() []byte { return id.fp }

// Destination is the fake overlay.Destination. Its fingerprint always
// equals its owning Identity's fingerprint, which keeps RecallIdentity
// lookups trivial in the fake without modeling Reticulum's actual
// destination-hash derivation.
type Destination struct {
	fp []byte
}

func (d *Destination) Fingerprint() []byte { return d.fp }

// Receipt is the fake overlay.Receipt. Unlike the real transport,
// delivery and timeout are not driven automatically — call Deliver or
// Timeout explicitly from a test to exercise ROS's callback handling
// on its own schedule.
type Receipt struct {
	mu       sync.Mutex
	onDeliver func(time.Duration)
	onTimeout func()
}

func (r *Receipt) SetDeliveryCallback(cb func(time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeliver = cb
}

func (r *Receipt) SetTimeoutCallback(cb func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTimeout = cb
}

// Deliver fires the registered delivery callback, if any, reporting rtt.
func (r *Receipt) Deliver(rtt time.Duration) {
	r.mu.Lock()
	cb := r.onDeliver
	r.mu.Unlock()
	if cb != nil {
		cb(rtt)
	}
}

// Timeout fires the registered timeout callback, if any.
func (r *Receipt) Timeout() {
	r.mu.Lock()
	cb := r.onTimeout
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Network is the shared fake radio plane several Transports attach to.
type Network struct {
	mu sync.Mutex

	nextFP uint64

	// destOwner maps a destination fingerprint (hex) to the Transport
	// that created it, for routing SendWithReceipt/Announce.
	destOwner map[string]*Transport
	destInfo  map[string]destMeta

	handlers map[string][]handlerEntry // aspect filter -> handlers
}

type destMeta struct {
	identity *Identity
	aspect   string
}

type handlerEntry struct {
	transport *Transport
	cb        overlay.AnnounceCallback
}

// NewNetwork returns an empty shared fake radio plane.
func NewNetwork() *Network {
	return &Network{
		destOwner: make(map[string]*Transport),
		destInfo:  make(map[string]destMeta),
		handlers:  make(map[string][]handlerEntry),
	}
}

func (n *Network) newFingerprint() []byte {
	n.mu.Lock()
	n.nextFP++
	id := n.nextFP
	n.mu.Unlock()
	return []byte(fmt.Sprintf("fake-fp-%08d", id))
}

// Transport is one node's view of the shared Network.
type Transport struct {
	net *Network

	mu              sync.Mutex
	ownIdentities   map[string]*Identity
	knownIdentities map[string]*Identity
	packetCallbacks map[string]overlay.PacketCallback
}

// NewTransport attaches a new node to net.
func NewTransport(net *Network) *Transport {
	return &Transport{
		net:             net,
		ownIdentities:   make(map[string]*Identity),
		knownIdentities: make(map[string]*Identity),
		packetCallbacks: make(map[string]overlay.PacketCallback),
	}
}

func (t *Transport) CreateIdentity() (overlay.Identity, error) {
	id := &Identity{fp: t.net.newFingerprint()}
	t.mu.Lock()
	t.ownIdentities[string(id.fp)] = id
	t.mu.Unlock()
	return id, nil
}

// CreateDestination only claims ownership in the fake's destOwner/
// destInfo registry for DirectionIn: an inbound destination is a
// node's own mailbox. An outbound destination built from a peer's
// recalled identity just wraps a reference to a mailbox some other
// Transport already owns, so it must not steal that routing entry.
//
// The destination's aspect is recorded as appName+"."+aspect, the
// combined filter spec.md §4.4 and pkg/overlay.Transport's own doc
// comment document (e.g. "atak.cot") — Announce matches this against
// RegisterAnnounceHandler's aspectFilter argument.
func (t *Transport) CreateDestination(id overlay.Identity, dir overlay.Direction, appName, aspect string) (overlay.Destination, error) {
	dest := &Destination{fp: id.Fingerprint()}

	if dir == overlay.DirectionIn {
		t.net.mu.Lock()
		t.net.destOwner[string(dest.fp)] = t
		t.net.destInfo[string(dest.fp)] = destMeta{identity: id.(*Identity), aspect: appName + "." + aspect}
		t.net.mu.Unlock()
	}

	return dest, nil
}

func (t *Transport) Announce(dest overlay.Destination, appData []byte) error {
	t.net.mu.Lock()
	info, ok := t.net.destInfo[string(dest.Fingerprint())]
	handlers := append([]handlerEntry(nil), t.net.handlers[info.aspect]...)
	t.net.mu.Unlock()
	if !ok {
		return fmt.Errorf("overlaytest: announce on unknown destination")
	}

	for _, h := range handlers {
		h.transport.mu.Lock()
		h.transport.knownIdentities[string(info.identity.fp)] = info.identity
		h.transport.mu.Unlock()
		h.cb(dest.Fingerprint(), info.identity, appData)
	}
	return nil
}

func (t *Transport) RegisterAnnounceHandler(aspectFilter string, cb overlay.AnnounceCallback) error {
	t.net.mu.Lock()
	defer t.net.mu.Unlock()
	t.net.handlers[aspectFilter] = append(t.net.handlers[aspectFilter], handlerEntry{transport: t, cb: cb})
	return nil
}

func (t *Transport) DeregisterAnnounceHandler(aspectFilter string) error {
	t.net.mu.Lock()
	defer t.net.mu.Unlock()
	entries := t.net.handlers[aspectFilter]
	out := entries[:0]
	for _, e := range entries {
		if e.transport != t {
			out = append(out, e)
		}
	}
	t.net.handlers[aspectFilter] = out
	return nil
}

func (t *Transport) RecallIdentity(fingerprint []byte) (overlay.Identity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ownIdentities[string(fingerprint)]; ok {
		return id, true
	}
	if id, ok := t.knownIdentities[string(fingerprint)]; ok {
		return id, true
	}
	return nil, false
}

func (t *Transport) SendWithReceipt(dest overlay.Destination, payload []byte) (overlay.Receipt, error) {
	t.net.mu.Lock()
	owner, ok := t.net.destOwner[string(dest.Fingerprint())]
	t.net.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("overlaytest: send to unknown destination")
	}

	owner.mu.Lock()
	cb := owner.packetCallbacks[string(dest.Fingerprint())]
	owner.mu.Unlock()
	if cb != nil {
		cb(payload)
	}

	return &Receipt{}, nil
}

func (t *Transport) RegisterPacketCallback(dest overlay.Destination, cb overlay.PacketCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetCallbacks[string(dest.Fingerprint())] = cb
	return nil
}
