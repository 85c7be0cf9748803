package batman

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `[B.A.T.M.A.N. adv 2021.3, MainIF/MAC: br0/02:11:22:33:44:55 (bat0/ba:d0:de:ca:fe:00)]
  Originator        last-seen ( throughput) Nexthop           [outgoingIF]
 * aa:bb:cc:dd:ee:01    0.420s (       10.0) aa:bb:cc:dd:ee:01 [     wlan0]
   aa:bb:cc:dd:ee:02    4.990s (        0.5) aa:bb:cc:dd:ee:02 [     wlan0]
 * aa:bb:cc:dd:ee:02    4.990s (        0.5) aa:bb:cc:dd:ee:02 [     wlan0]
not a data line at all
`

func TestParseOriginatorsExtractsBestPaths(t *testing.T) {
	s := &Source{}
	nodes := s.parseOriginators(sampleOutput)
	require.Len(t, nodes, 2)

	n1, ok := nodes["aa:bb:cc:dd:ee:01"]
	require.True(t, ok)
	require.InDelta(t, 0.420, n1.LastSeen.Seconds(), 0.001)
	require.NotNil(t, n1.Throughput)
	require.InDelta(t, 10.0, *n1.Throughput, 0.001)
	require.NotNil(t, n1.NextHop)
	require.Equal(t, "aa:bb:cc:dd:ee:01", *n1.NextHop)
}

func TestParseOriginatorsSkipsUnparsableLines(t *testing.T) {
	s := &Source{}
	nodes := s.parseOriginators(" * short\n * also bad (no close paren\n")
	require.Empty(t, nodes)
}

func TestSampleReturnsEmptyMapOnCommandFailure(t *testing.T) {
	s := &Source{runCommand: func(ctx context.Context) (string, error) {
		return "", context.DeadlineExceeded
	}}

	nodes, err := s.Sample()
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestSampleParsesSuccessfulOutput(t *testing.T) {
	s := &Source{runCommand: func(ctx context.Context) (string, error) {
		return sampleOutput, nil
	}}

	nodes, err := s.Sample()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Less(t, nodes["aa:bb:cc:dd:ee:01"].LastSeen, time.Second)
}

func TestSampleWarnsOnceOnRepeatedCommandFailure(t *testing.T) {
	var buf bytes.Buffer
	s := &Source{
		runCommand: func(ctx context.Context) (string, error) {
			return "", context.DeadlineExceeded
		},
		logger: slog.New(slog.NewTextHandler(&buf, nil)),
		rate:   log.NewRateLimiter(time.Minute),
	}

	_, err := s.Sample()
	require.NoError(t, err)
	_, err = s.Sample()
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(buf.String(), "batctl invocation failed"))
}

func TestParseOriginatorsWarnsOnUnparsableLine(t *testing.T) {
	var buf bytes.Buffer
	s := &Source{
		logger: slog.New(slog.NewTextHandler(&buf, nil)),
		rate:   log.NewRateLimiter(time.Minute),
	}

	nodes := s.parseOriginators(" * short\n")
	require.Empty(t, nodes)
	require.Contains(t, buf.String(), "unparsable batctl originator line")
}
