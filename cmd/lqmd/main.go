// Command lqmd runs the Link-Quality Monitor: samples BATMAN-adv's
// originator table once per second and writes node_status.json.
package main

import (
	"fmt"
	"os"

	"github.com/natak-mesh/overlay-bridge/internal/app"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/lqm"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/telemetry"
	"github.com/natak-mesh/overlay-bridge/internal/telemetry/batman"
	"go.uber.org/fx"
)

func main() {
	cfg := config.FromEnv()

	a := app.New(
		fx.Supply(*cfg),
		fx.Provide(func() telemetry.Source { return batman.New(log.Logger("batman")) }),
		lqm.Module,
		metrics.Module,
	)

	if err := a.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "lqmd:", err)
		os.Exit(1)
	}
}
