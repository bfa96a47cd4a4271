package postman

import (
	"fmt"

	"github.com/nasa/YOGA-sub004/mp"
	"github.com/nasa/YOGA-sub004/msg"
)

// GatherPorts performs the one-time exchange spec.md §4.4 calls for:
// every rank all-gathers its OS-assigned listen port over the
// message-passing facade, then rebuilds "host:port" addresses against a
// shared hostname (the interconnect name in a real run, "127.0.0.1" in
// single-host tests).
func GatherPorts(g *mp.Group, s *Server, host string) ([]string, error) {
	ports, err := mp.AllGather(g, int32(s.Port()),
		func(m *msg.Message, v int32) { m.PackInt32(v) },
		func(m *msg.Message) (int32, error) { return m.UnpackInt32() })
	if err != nil {
		return nil, err
	}
	addrs := make([]string, len(ports))
	for i, p := range ports {
		addrs[i] = fmt.Sprintf("%s:%d", host, p)
	}
	s.SetPeers(addrs)
	return addrs, nil
}
