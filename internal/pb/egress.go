package pb

import (
	"context"
	"time"

	"github.com/natak-mesh/overlay-bridge/internal/dedup"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
)

// runEgress polls incoming/ at cfg.EgressPollHz until ctx is
// cancelled, implementing spec.md §4.5's egress steps 1-4 and the
// quiescence purge.
func (b *Bridge) runEgress(ctx context.Context) error {
	interval := time.Second / time.Duration(b.cfg.EgressPollHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.egressTick()
		}
	}
}

func (b *Bridge) egressTick() {
	status, _ := b.state.refresh()
	if allRemoteFast(status) {
		if err := b.spool.Purge(); err != nil {
			if b.rate.Allow("purge-failed", time.Now()) {
				b.logger.Warn("quiescence purge failed", "error", err)
			}
		}
		return
	}

	names, err := b.spool.List(spool.Incoming)
	if err != nil {
		if b.rate.Allow("list-incoming-failed", time.Now()) {
			b.logger.Warn("listing incoming spool failed", "error", err)
		}
		return
	}

	if b.metrics != nil {
		b.reportSpoolDepths()
	}

	for _, name := range names {
		b.processIncoming(name)
	}
}

func (b *Bridge) processIncoming(name string) {
	data, commit, err := b.spool.TakeIncoming(name)
	if err != nil {
		if b.rate.Allow("take-incoming-failed", time.Now()) {
			b.logger.Warn("taking incoming file failed", "name", name, "error", err)
		}
		return
	}
	defer func() {
		if err := commit(); err != nil {
			b.logger.Warn("committing incoming file failed", "name", name, "error", err)
		}
	}()

	decompressed, err := b.codec.Decompress(data)
	if err != nil {
		if b.rate.Allow("decompress-failed", time.Now()) {
			b.logger.Warn("decompressing incoming file failed", "name", name, "error", err)
		}
		return
	}

	if b.dedup.Observe(decompressed) == dedup.WasSeen {
		if b.metrics != nil {
			b.metrics.PBDedupHits.Inc()
		}
		return
	}

	b.sendDownstream(decompressed)
}

func (b *Bridge) reportSpoolDepths() {
	for stage, label := range map[spool.Stage]string{
		spool.Pending:    "pending",
		spool.SentBuffer: "sent_buffer",
		spool.Incoming:   "incoming",
	} {
		names, err := b.spool.List(stage)
		if err != nil {
			continue
		}
		b.metrics.PBSpoolDepth.WithLabelValues(label).Set(float64(len(names)))
	}
}
