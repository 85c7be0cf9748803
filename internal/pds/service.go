package pds

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/statefile"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
)

// RSSISNRSource is an optional extension an overlay.Transport may
// implement to expose per-announce signal quality. Grounded on
// rns_monitor.py's AnnounceHandler reading
// Reticulum.get_packet_rssi/get_packet_snr for a shared-instance
// transport; not every transport can report this, so PDS only uses
// it via a type assertion.
type RSSISNRSource interface {
	PacketRSSI(destinationFingerprint []byte) (float64, bool)
	PacketSNR(destinationFingerprint []byte) (float64, bool)
}

// Service owns this node's overlay identity and inbound destination,
// announces on a timer, and maintains the peer map backing
// peer_discovery, per spec.md §4.4.
type Service struct {
	cfg       config.PDSConfig
	hostname  string
	transport overlay.Transport
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Registry // nil-safe; may be nil outside of production wiring

	identity overlay.Identity
	inbound  overlay.Destination

	mu    sync.Mutex
	peers map[string]*Peer

	wg      sync.WaitGroup
	loopCtx context.Context
	cancel  context.CancelFunc
}

// New constructs a Service. The overlay identity/destination are not
// created until Start, so New never fails.
func New(cfg config.PDSConfig, hostname string, transport overlay.Transport, clk clock.Clock, logger *slog.Logger, reg *metrics.Registry) *Service {
	return &Service{
		cfg:       cfg,
		hostname:  hostname,
		transport: transport,
		clock:     clk,
		logger:    logger,
		metrics:   reg,
		peers:     make(map[string]*Peer),
	}
}

// Identity returns this node's overlay identity, created by Start.
func (s *Service) Identity() overlay.Identity { return s.identity }

// InboundDestination returns this node's inbound destination, created
// by Start. ROS registers its incoming-packet callback on this value.
func (s *Service) InboundDestination() overlay.Destination { return s.inbound }

// Start creates this node's identity and inbound destination, clears
// any persisted peer state, registers the announce handler, and
// begins the announce-emitter loop. It returns once setup completes;
// the loop itself runs in a background goroutine until Stop is called
// (ctx bounds only this call, not the loop).
func (s *Service) Start(ctx context.Context) error {
	identity, err := s.transport.CreateIdentity()
	if err != nil {
		return &SetupError{Op: "create identity", Err: err}
	}
	s.identity = identity

	dest, err := s.transport.CreateDestination(identity, overlay.DirectionIn, s.cfg.AppName, s.cfg.Aspect)
	if err != nil {
		return &SetupError{Op: "create inbound destination", Err: err}
	}
	s.inbound = dest

	if err := s.persistLocked(PeerDiscoveryDoc{Timestamp: s.clock.Now().Unix(), Peers: map[string]PeerDiscoveryRow{}}); err != nil {
		s.logger.Warn("clearing peer_discovery at startup failed", "error", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loopCtx = loopCtx
	s.cancel = cancel

	if err := s.transport.RegisterAnnounceHandler(s.aspectFilter(), s.handleAnnounce); err != nil {
		return &SetupError{Op: "register announce handler", Err: err}
	}

	s.wg.Add(1)
	go s.announceLoop(loopCtx)

	return nil
}

// Stop deregisters the announce handler and terminates the
// announce-emitter loop and any pending responsive announce cleanly.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.transport.DeregisterAnnounceHandler(s.aspectFilter())
}

// aspectFilter is the combined {APP_NAME}.{ASPECT} filter spec.md §4.4
// documents (e.g. "atak.cot"), matching pkg/overlay.Transport's own
// RegisterAnnounceHandler doc comment.
func (s *Service) aspectFilter() string {
	return s.cfg.AppName + "." + s.cfg.Aspect
}

func (s *Service) announceLoop(ctx context.Context) {
	defer s.wg.Done()

	s.announce()

	ticker := s.clock.Ticker(s.cfg.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.announce()
			s.runMaintenance()
		}
	}
}

func (s *Service) announce() {
	if err := s.transport.Announce(s.inbound, []byte(s.hostname)); err != nil {
		s.logger.Warn("announce failed", "error", err)
	}
}

// handleAnnounce implements overlay.AnnounceCallback, per spec.md
// §4.4's four-step announce-handler contract.
func (s *Service) handleAnnounce(destinationFingerprint []byte, announcedIdentity overlay.Identity, appData []byte) {
	if bytes.Equal(destinationFingerprint, s.inbound.Fingerprint()) {
		return
	}

	hostname := strings.TrimSpace(string(appData))
	if hostname == "" {
		return
	}

	s.recordSignalQuality(destinationFingerprint, hostname)

	s.mu.Lock()
	peer, existed := s.peers[hostname]
	now := s.clock.Now()
	if !existed {
		peer = &Peer{Hostname: hostname}
		s.peers[hostname] = peer
	}
	peer.DestinationFingerprint = destinationFingerprint
	peer.LastSeen = now
	doc := s.snapshotLocked(now)
	s.mu.Unlock()

	if err := s.persistLocked(doc); err != nil {
		s.logger.Warn("writing peer_discovery failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.PDSPeersActive.Set(float64(len(doc.Peers)))
	}

	if !existed {
		s.scheduleResponsiveAnnounce()
	}
}

// scheduleResponsiveAnnounce fires one extra announce after a uniform
// random delay in [ResponsiveAnnounceDelayMin, ResponsiveAnnounceDelayMax],
// per spec.md §4.4 step 3, to bootstrap bidirectional discovery
// without every node announcing in lockstep.
func (s *Service) scheduleResponsiveAnnounce() {
	min := s.cfg.ResponsiveAnnounceDelayMin
	max := s.cfg.ResponsiveAnnounceDelayMax
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Float64()*float64(max-min))
	}

	ctx := s.loopCtx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := s.clock.Timer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.announce()
		case <-ctx.Done():
		}
	}()
}

func (s *Service) recordSignalQuality(fingerprint []byte, hostname string) {
	if s.metrics == nil {
		return
	}
	src, ok := s.transport.(RSSISNRSource)
	if !ok {
		return
	}
	if rssi, ok := src.PacketRSSI(fingerprint); ok {
		s.metrics.PDSPeerRSSI.WithLabelValues(hostname).Set(rssi)
	}
	if snr, ok := src.PacketSNR(fingerprint); ok {
		s.metrics.PDSPeerSNR.WithLabelValues(hostname).Set(snr)
	}
}

// runMaintenance removes peers not heard from in over PeerTimeout.
// Per spec.md §4.4, this runs at least every AnnounceInterval; it is
// folded into the same ticker tick as the announce emission.
func (s *Service) runMaintenance() {
	now := s.clock.Now()

	s.mu.Lock()
	for hostname, peer := range s.peers {
		if now.Sub(peer.LastSeen) > s.cfg.PeerTimeout {
			delete(s.peers, hostname)
		}
	}
	doc := s.snapshotLocked(now)
	s.mu.Unlock()

	if err := s.persistLocked(doc); err != nil {
		s.logger.Warn("writing peer_discovery failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.PDSPeersActive.Set(float64(len(doc.Peers)))
	}
}

func (s *Service) snapshotLocked(now time.Time) PeerDiscoveryDoc {
	doc := PeerDiscoveryDoc{
		Timestamp: now.Unix(),
		Peers:     make(map[string]PeerDiscoveryRow, len(s.peers)),
	}
	for hostname, peer := range s.peers {
		doc.Peers[hostname] = PeerDiscoveryRow{
			DestinationHash: hex.EncodeToString(peer.DestinationFingerprint),
			LastSeen:        peer.LastSeen.Unix(),
		}
	}
	return doc
}

func (s *Service) persistLocked(doc PeerDiscoveryDoc) error {
	return statefile.WriteJSON(s.cfg.PeerDiscoveryPath, doc)
}

// Snapshot returns a copy of the current peer map, mainly for tests.
func (s *Service) Snapshot() PeerDiscoveryDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.clock.Now())
}
