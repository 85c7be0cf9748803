package pb

import (
	"context"
	"net"
	"time"

	"github.com/jbenet/go-temp-err-catcher"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/dedup"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
)

// runIngress binds one multicast receive socket for group and drains
// it until ctx is cancelled, implementing spec.md §4.5's ingress steps
// 1-5. One goroutine per configured upstream group, per SPEC_FULL.md
// §7's "one thread per multicast listening socket."
func (b *Bridge) runIngress(ctx context.Context, ifi *net.Interface, group config.MulticastGroup) error {
	conn, err := net.ListenMulticastUDP("udp4", ifi, &net.UDPAddr{IP: net.ParseIP(group.Addr), Port: group.Port})
	if err != nil {
		return err
	}
	defer conn.Close()

	var catcher temperrcatcher.TempErrCatcher
	buf := make([]byte, 65535)

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn.SetReadDeadline(time.Now().Add(b.cfg.IngressReadTimeout))
		n, srcAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue // the 100ms read deadline exists only to let ctx cancellation be noticed promptly
			}
			if catcher.IsTemp(err) {
				continue
			}
			return err
		}

		b.handleIngressPacket(srcAddr, append([]byte(nil), buf[:n]...))
	}
}

func (b *Bridge) handleIngressPacket(src *net.UDPAddr, payload []byte) {
	if !b.local.isLocal(src.IP) {
		return // spec.md §4.5 step 1: only LOCAL sources are accepted on upstream ports
	}

	if b.dedup.Observe(payload) == dedup.WasSeen {
		if b.metrics != nil {
			b.metrics.PBDedupHits.Inc()
		}
		return
	}

	status, peers := b.state.refresh()
	if !hasFallbackWork(status, peers) {
		return // no SLOW peer with a peer_discovery entry: nothing for ROS to do with this
	}

	compressed, err := b.codec.Compress(payload)
	if err != nil {
		if b.rate.Allow("compress-failed", time.Now()) {
			b.logger.Warn("compressing ingress packet failed", "error", err)
		}
		return
	}

	if _, err := b.spool.WriteNew(spool.Pending, compressed); err != nil {
		if b.rate.Allow("pending-write-failed", time.Now()) {
			b.logger.Warn("writing to pending spool failed", "error", err)
		}
	}
}
