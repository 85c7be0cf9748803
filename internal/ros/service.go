package ros

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/pds"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
)

// inProgress tracks a pending/ file whose first-send pass has started
// but not yet touched every target in its snapshot — spec.md §4.6
// step 2's target set is fixed the moment a file is first seen, even
// though the pacing gate may spread the actual sends across several
// ticks.
type inProgress struct {
	targetSet []string
	record    *DeliveryRecord
}

// Service drives the ~1Hz send/retry/receipt/cleanup loop, spec.md §4.6.
type Service struct {
	cfg        config.ROSConfig
	appName    string
	aspect     string
	transport  overlay.Transport
	pdsService *pds.Service
	inbound    overlay.Destination
	resolver   *destResolver
	spool      *spool.Spool
	state      *stateCache
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Registry

	mu            sync.Mutex
	pending       map[string]*inProgress
	records       map[string]*DeliveryRecord // filename -> record, for sent_buffer files
	lastRadioSend time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Service. pdsService owns the inbound destination
// ROS registers its incoming-packet callback on; that destination
// only exists once pdsService.Start has run, so it is fetched lazily
// in Start rather than captured here.
func New(cfg config.ROSConfig, appName, aspect string, transport overlay.Transport, pdsService *pds.Service, sp *spool.Spool, clk clock.Clock, logger *slog.Logger, reg *metrics.Registry) *Service {
	return &Service{
		cfg:        cfg,
		appName:    appName,
		aspect:     aspect,
		transport:  transport,
		pdsService: pdsService,
		resolver:   newDestResolver(transport, appName, aspect),
		spool:      sp,
		state:      newStateCache(cfg.NodeStatusPath, cfg.PeerDiscoveryPath),
		clock:      clk,
		logger:     logger,
		metrics:    reg,
		pending:    make(map[string]*inProgress),
		records:    make(map[string]*DeliveryRecord),
	}
}

// Start recovers incoming/ from any prior crash, registers the
// inbound packet callback, and launches the main loop. It must run
// after pdsService.Start, so overlayd's fx.App registers pds.Module
// ahead of ros.Module.
func (s *Service) Start(ctx context.Context) error {
	if err := s.spool.RecoverIncoming(); err != nil {
		s.logger.Warn("recovering incoming spool failed", "error", err)
	}

	s.inbound = s.pdsService.InboundDestination()
	if err := s.transport.RegisterPacketCallback(s.inbound, s.handleIncomingPacket); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop cancels the main loop and waits for it to exit.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

// handleIncomingPacket implements overlay.PacketCallback: write the
// raw bytes into incoming/, untouched, per spec.md §4.6's
// "no decompression or interpretation here — that is PB's job."
func (s *Service) handleIncomingPacket(payload []byte) {
	if _, err := s.spool.WriteNew(spool.Incoming, payload); err != nil {
		s.logger.Warn("writing incoming packet to spool failed", "error", err)
	}
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one pass of spec.md §4.6's six ordered steps.
func (s *Service) tick() {
	now := s.clock.Now()
	status, peers := s.state.refresh()

	s.firstSendPass(now, status, peers)
	s.retryPass(now, status, peers)
	s.receiptPromptPass(now, peers)
	s.cleanupPass()
}

// gateOpen reports whether SEND_SPACING_DELAY has elapsed since the
// last radio transmission. Per DESIGN.md's Open Question decision,
// "wait until the pacing gate permits" is implemented as a deferral to
// a later ~1Hz tick rather than a blocking sleep, so the single
// in-process loop stays responsive to steps 4-6 for every other file
// while spacing is enforced.
func (s *Service) gateOpen(now time.Time) bool {
	return now.Sub(s.lastRadioSend) >= s.cfg.SendSpacingDelay
}

func (s *Service) firstSendPass(now time.Time, status nodeStatusFile, peers peerDiscoveryFile) {
	names, err := s.spool.List(spool.Pending)
	if err != nil {
		s.logger.Warn("listing pending spool failed", "error", err)
		return
	}

	for _, name := range names {
		s.mu.Lock()
		ip, exists := s.pending[name]
		s.mu.Unlock()

		if !exists {
			targets := targetSet(status, peers)
			if len(targets) == 0 {
				continue // leave the file in place, spec.md §4.6 step 2a
			}
			ip = &inProgress{targetSet: targets, record: &DeliveryRecord{Targets: map[string]*DeliveryTarget{}}}
			s.mu.Lock()
			s.pending[name] = ip
			s.mu.Unlock()
		}

		if s.attemptRemainingTargets(now, name, ip, peers) {
			return // the pacing gate closed after a send; resume next tick
		}

		if len(ip.record.Targets) == len(ip.targetSet) {
			s.finishPendingFile(name, ip)
		}
	}
}

// attemptRemainingTargets walks ip.targetSet in order, skipping targets
// already recorded in ip.record.Targets, and returns after the first
// successful send; unknown or unresolvable hostnames are recorded as
// exhausted along the way. Returns true if it stopped because the
// pacing gate was closed, meaning the caller should not proceed to
// further files this tick.
func (s *Service) attemptRemainingTargets(now time.Time, name string, ip *inProgress, peers peerDiscoveryFile) bool {
	data, err := s.spool.Read(spool.Pending, name)
	if err != nil {
		s.logger.Warn("reading pending file failed", "name", name, "error", err)
		return false
	}

	for _, hostname := range ip.targetSet {
		if _, done := ip.record.Targets[hostname]; done {
			continue
		}

		row, known := peers.Peers[hostname]
		if !known {
			ip.record.Targets[hostname] = exhaustedTarget(s.cfg.RetryMaxAttempts)
			continue
		}

		dest, err := s.resolver.Resolve(hostname, row)
		if err != nil {
			s.logger.Warn("resolving destination failed", "hostname", hostname, "error", err)
			ip.record.Targets[hostname] = exhaustedTarget(s.cfg.RetryMaxAttempts)
			continue
		}

		if !s.gateOpen(now) {
			return true
		}

		if !s.send(now, name, hostname, dest, data, ip.record.Targets) {
			continue // send failed outright; leave it unrecorded, retried next tick
		}
		return false
	}
	return false
}

func exhaustedTarget(maxAttempts int) *DeliveryTarget {
	return &DeliveryTarget{RetryCount: maxAttempts}
}

// send transmits data to dest, records the attempt, and wires the
// receipt's callbacks. Returns false (without recording anything) if
// the transport itself rejected the send outright.
func (s *Service) send(now time.Time, file, hostname string, dest overlay.Destination, data []byte, targets map[string]*DeliveryTarget) bool {
	receipt, err := s.transport.SendWithReceipt(dest, data)
	if err != nil {
		s.logger.Warn("send failed", "file", file, "hostname", hostname, "error", err)
		return false
	}

	s.lastRadioSend = now
	target := &DeliveryTarget{SentAt: now, NextEligibleAt: now.Add(s.cfg.RetryInitialDelay)}
	targets[hostname] = target
	s.wireReceipt(receipt, hostname, target)
	return true
}

func (s *Service) wireReceipt(receipt overlay.Receipt, hostname string, target *DeliveryTarget) {
	receipt.SetDeliveryCallback(func(rtt time.Duration) {
		s.mu.Lock()
		target.Delivered = true
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ROSReceiptRTT.Observe(rtt.Seconds())
		}
	})
	receipt.SetTimeoutCallback(func() {
		// Leave Delivered=false; the retry pass decides whether to re-send.
	})
}

func (s *Service) finishPendingFile(name string, ip *inProgress) {
	if err := s.spool.Move(spool.Pending, spool.SentBuffer, name); err != nil {
		s.logger.Warn("moving pending file to sent_buffer failed", "name", name, "error", err)
		return
	}
	s.mu.Lock()
	delete(s.pending, name)
	s.records[name] = ip.record
	s.mu.Unlock()
}

// retryPass implements spec.md §4.6 step 3.
func (s *Service) retryPass(now time.Time, status nodeStatusFile, peers peerDiscoveryFile) {
	s.mu.Lock()
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names) // oldest-first by filename timestamp, spec.md's "retry pass does not reorder files"

	modes := modeByHostname(status)

	for _, name := range names {
		s.mu.Lock()
		record := s.records[name]
		s.mu.Unlock()
		if record == nil {
			continue
		}

		for hostname, target := range record.Targets {
			if target.Delivered || target.RetryCount >= s.cfg.RetryMaxAttempts {
				continue
			}
			row, known := peers.Peers[hostname]
			if !known {
				continue
			}
			if modes[hostname] != "SLOW" {
				continue
			}
			if target.NextEligibleAt.After(now) {
				continue
			}
			if !s.gateOpen(now) {
				return
			}

			data, err := s.spool.Read(spool.SentBuffer, name)
			if err != nil {
				s.logger.Warn("reading sent_buffer file failed", "name", name, "error", err)
				continue
			}
			dest, err := s.resolver.Resolve(hostname, row)
			if err != nil {
				s.logger.Warn("resolving destination failed", "hostname", hostname, "error", err)
				continue
			}

			receipt, err := s.transport.SendWithReceipt(dest, data)
			if err != nil {
				s.logger.Warn("retry send failed", "name", name, "hostname", hostname, "error", err)
				continue
			}
			s.lastRadioSend = now
			target.RetryCount++
			target.SentAt = now
			target.NextEligibleAt = now.Add(nextBackoff(target.RetryCount, s.cfg.RetryInitialDelay, s.cfg.RetryBackoffFactor, s.cfg.RetryMaxDelay, s.cfg.RetryJitter))
			s.wireReceipt(receipt, hostname, target)
			return // one send per tick, matching firstSendPass's pacing
		}
	}
}

// receiptPromptPass implements spec.md §4.6 step 4: the overlay
// transport's delivery receipts are only processed promptly if the
// client "touches" its per-peer identity accessor, so ROS pumps
// RecallIdentity for any target still awaiting confirmation.
func (s *Service) receiptPromptPass(now time.Time, peers peerDiscoveryFile) {
	s.mu.Lock()
	records := make(map[string]*DeliveryRecord, len(s.records))
	for name, r := range s.records {
		records[name] = r
	}
	s.mu.Unlock()

	for _, record := range records {
		for hostname, target := range record.Targets {
			if target.Delivered {
				continue
			}
			if now.Sub(target.LastReceiptPrompt) < s.cfg.ReceiptPromptPeriod {
				continue
			}
			row, known := peers.Peers[hostname]
			if !known {
				continue
			}
			fp, err := peerFingerprint(row)
			if err != nil {
				continue
			}
			s.transport.RecallIdentity(fp)
			target.LastReceiptPrompt = now
		}
	}
}

// cleanupPass implements spec.md §4.6 step 6.
func (s *Service) cleanupPass() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, record := range s.records {
		done := true
		for _, target := range record.Targets {
			if !target.Delivered && target.RetryCount < s.cfg.RetryMaxAttempts {
				done = false
				break
			}
		}
		if !done {
			continue
		}
		if err := s.spool.Remove(spool.SentBuffer, name); err != nil {
			s.logger.Warn("removing finished sent_buffer file failed", "name", name, "error", err)
			continue
		}
		for _, target := range record.Targets {
			if !target.Delivered && s.metrics != nil {
				s.metrics.ROSRetryExhausted.Inc()
			}
		}
		delete(s.records, name)
	}
}

// Snapshot returns a copy of the current delivery records, mainly for tests.
func (s *Service) Snapshot() map[string]*DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*DeliveryRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}
