// Command overlayd runs the Peer Discovery Service and the Reliable
// Overlay Sender in one process, sharing one overlay.Transport handle,
// per SPEC_FULL.md §2.
package main

import (
	"fmt"
	"os"

	"github.com/natak-mesh/overlay-bridge/internal/app"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/overlaytest"
	"github.com/natak-mesh/overlay-bridge/internal/pds"
	"github.com/natak-mesh/overlay-bridge/internal/ros"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
	"go.uber.org/fx"
)

// provideTransport supplies the overlay.Transport this process sends
// and receives through. spec.md treats the cryptographic-overlay
// transport itself as a consumed library, not something this
// repository reimplements ("a reimplementation of the overlay layer
// from scratch is out of scope"). No production Go binding for that
// transport ships here; operators building a deployable image are
// expected to replace this fx.Provide with one, keeping the
// overlay.Transport interface as the seam. Until then this wires
// internal/overlaytest's in-process fake as a single-node stand-in so
// overlayd runs standalone for local development and integration
// testing against cmd/pbd.
func provideTransport() overlay.Transport {
	return overlaytest.NewTransport(overlaytest.NewNetwork())
}

func main() {
	cfg := config.FromEnv()

	a := app.New(
		fx.Supply(*cfg),
		fx.Provide(provideTransport),
		pds.Module,
		ros.Module,
		metrics.Module,
	)

	if err := a.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
}
