package pb

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/natak-mesh/overlay-bridge/internal/codec"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/dedup"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"
)

// Bridge ferries CoT traffic between the local bridge interface's
// multicast groups and the overlay spool, per spec.md §4.5.
type Bridge struct {
	cfg     config.PBConfig
	dedup   *dedup.Ring
	codec   *codec.Codec
	spool   *spool.Spool
	logger  *slog.Logger
	metrics *metrics.Registry

	local *localAddressSet
	state *stateCache
	rate  *log.RateLimiter

	senders []*downstreamSender

	group  *errgroup.Group
	cancel context.CancelFunc
}

type downstreamSender struct {
	pc   *ipv4.PacketConn
	dest *net.UDPAddr
}

// New constructs a Bridge. Network sockets are not opened until Start.
func New(cfg config.PBConfig, dedupRing *dedup.Ring, cdc *codec.Codec, sp *spool.Spool, logger *slog.Logger, reg *metrics.Registry) (*Bridge, error) {
	local, err := newLocalAddressSet(cfg.Interface)
	if err != nil {
		return nil, err
	}

	return &Bridge{
		cfg:     cfg,
		dedup:   dedupRing,
		codec:   cdc,
		spool:   sp,
		logger:  logger,
		metrics: reg,
		local:   local,
		state:   newStateCache(cfg.NodeStatusPath, cfg.PeerDiscoveryPath),
		rate:    log.NewRateLimiter(time.Minute),
	}, nil
}

// Start recovers any in-flight incoming file left by a prior crash,
// opens every ingress listening socket and downstream sending socket,
// and launches the ingress and egress goroutines.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.spool.RecoverIncoming(); err != nil {
		b.logger.Warn("recovering incoming spool failed", "error", err)
	}

	ifi, err := net.InterfaceByName(b.cfg.Interface)
	if err != nil {
		return err
	}

	for _, group := range b.cfg.DownstreamGroups {
		sender, err := newDownstreamSender(ifi, group)
		if err != nil {
			return err
		}
		b.senders = append(b.senders, sender)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	g, gCtx := errgroup.WithContext(runCtx)
	b.group = g

	for _, group := range b.cfg.UpstreamGroups {
		group := group
		g.Go(func() error {
			return b.runIngress(gCtx, ifi, group)
		})
	}
	g.Go(func() error {
		return b.runEgress(gCtx)
	})

	return nil
}

// Stop cancels every ingress/egress goroutine and waits for them to
// exit, then closes the downstream sending sockets.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	var err error
	if b.group != nil {
		err = b.group.Wait()
	}
	for _, s := range b.senders {
		s.pc.Close()
	}
	return err
}

func newDownstreamSender(ifi *net.Interface, group config.MulticastGroup) (*downstreamSender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastInterface(ifi); err != nil {
		conn.Close()
		return nil, err
	}
	// Disabling loopback here prevents this node's own egress send
	// from being re-received by its own ingress listener on the same
	// group, per spec.md §4.5 egress step 4.
	if err := pc.SetMulticastLoopback(false); err != nil {
		conn.Close()
		return nil, err
	}

	return &downstreamSender{
		pc:   pc,
		dest: &net.UDPAddr{IP: net.ParseIP(group.Addr), Port: group.Port},
	}, nil
}

func (b *Bridge) sendDownstream(payload []byte) {
	for _, s := range b.senders {
		if _, err := s.pc.WriteTo(payload, nil, s.dest); err != nil {
			if b.rate.Allow("downstream-send", time.Now()) {
				b.logger.Warn("downstream send failed", "dest", s.dest, "error", err)
			}
		}
	}
}
