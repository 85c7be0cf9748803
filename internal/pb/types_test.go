package pb

import "testing"

func TestHasFallbackWorkRequiresSlowAndKnownPeer(t *testing.T) {
	status := nodeStatusFile{Nodes: map[string]nodeRow{
		"aa:bb:cc:dd:ee:01": {Hostname: "node-b", Mode: "SLOW"},
		"aa:bb:cc:dd:ee:02": {Hostname: "node-c", Mode: "FAST"},
	}}

	cases := []struct {
		name  string
		peers peerDiscoveryFile
		want  bool
	}{
		{"slow peer known", peerDiscoveryFile{Peers: map[string]peerRow{"node-b": {}}}, true},
		{"slow peer unknown", peerDiscoveryFile{Peers: map[string]peerRow{"node-c": {}}}, false},
		{"no peers known", peerDiscoveryFile{Peers: map[string]peerRow{}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := hasFallbackWork(status, c.peers); got != c.want {
				t.Errorf("hasFallbackWork() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestAllRemoteFast(t *testing.T) {
	allFast := nodeStatusFile{Nodes: map[string]nodeRow{"a": {Mode: "FAST"}, "b": {Mode: "FAST"}}}
	if !allRemoteFast(allFast) {
		t.Error("expected all-FAST status to report quiescent")
	}

	oneSlow := nodeStatusFile{Nodes: map[string]nodeRow{"a": {Mode: "FAST"}, "b": {Mode: "SLOW"}}}
	if allRemoteFast(oneSlow) {
		t.Error("expected a SLOW node to block quiescence")
	}

	if !allRemoteFast(nodeStatusFile{}) {
		t.Error("expected an empty node set to report quiescent")
	}
}
