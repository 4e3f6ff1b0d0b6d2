package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/pktsim/network"
)

// Summary aggregates the counters and the load of every node.
type Summary struct {
	Processed  uint64  `json:"processed"`
	Dropped    uint64  `json:"dropped"`
	Generated  uint64  `json:"generated"`
	DropRate   float64 `json:"drop_rate"`
	Nodes      int     `json:"nodes"`
	Buffered   int     `json:"buffered"`
	MeanLoad   float64 `json:"mean_load"`
	LoadStdDev float64 `json:"load_std_dev"`
	MaxLoad    float64 `json:"max_load"`
}

// Summarize combines counters with a node snapshot.
func Summarize(c Counters, nodes []network.NodeSnapshot) Summary {
	s := Summary{
		Processed: c.Processed,
		Dropped:   c.Dropped,
		Generated: c.Generated(),
		Nodes:     len(nodes),
	}

	if s.Generated > 0 {
		s.DropRate = float64(s.Dropped) / float64(s.Generated)
	}

	if len(nodes) == 0 {
		return s
	}

	loads := make([]float64, len(nodes))
	for i, n := range nodes {
		loads[i] = n.Load
		s.Buffered += n.Size
	}

	s.MeanLoad = stat.Mean(loads, nil)
	s.MaxLoad = floats.Max(loads)

	if len(loads) > 1 {
		s.LoadStdDev = stat.StdDev(loads, nil)
	}

	return s
}
