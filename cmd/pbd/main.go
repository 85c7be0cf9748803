// Command pbd runs the Packet Bridge: relays multicast CoT traffic
// between the local application and the spool the overlay sender
// drains, deduplicating and compressing along the way.
package main

import (
	"fmt"
	"os"

	"github.com/natak-mesh/overlay-bridge/internal/app"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/pb"
	"go.uber.org/fx"
)

func main() {
	cfg := config.FromEnv()

	a := app.New(
		fx.Supply(*cfg),
		pb.Module,
		metrics.Module,
	)

	if err := a.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "pbd:", err)
		os.Exit(1)
	}
}
