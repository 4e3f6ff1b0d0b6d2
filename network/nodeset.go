package network

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// A NodeSet is the authoritative, ordered collection of nodes. The router
// and the drainer hold a reference to it rather than a copy, so structural
// changes are visible to them immediately.
//
// NodeSet is not safe for concurrent use; the owner serializes access.
type NodeSet struct {
	nodes []*Node
}

// NewNodeSet creates an empty node set.
func NewNodeSet() *NodeSet {
	return &NodeSet{}
}

// Len returns the number of nodes.
func (s *NodeSet) Len() int {
	return len(s.nodes)
}

// At returns the i-th node in insertion order.
func (s *NodeSet) At(i int) *Node {
	return s.nodes[i]
}

// Nodes returns the nodes in insertion order. The slice is a copy; the
// nodes are not.
func (s *NodeSet) Nodes() []*Node {
	return slices.Clone(s.nodes)
}

// Addresses returns the node addresses in insertion order.
func (s *NodeSet) Addresses() []Address {
	addrs := make([]Address, len(s.nodes))
	for i, n := range s.nodes {
		addrs[i] = n.address
	}

	return addrs
}

// Find looks up a node by address.
func (s *NodeSet) Find(addr Address) (*Node, bool) {
	i := slices.IndexFunc(s.nodes, func(n *Node) bool {
		return n.address == addr
	})
	if i < 0 {
		return nil, false
	}

	return s.nodes[i], true
}

// Contains tells whether a node with the address exists.
func (s *NodeSet) Contains(addr Address) bool {
	_, found := s.Find(addr)
	return found
}

// Add appends a node.
func (s *NodeSet) Add(n *Node) error {
	if s.Contains(n.address) {
		return fmt.Errorf("node %s: %w", n.address, ErrDuplicateAddress)
	}

	s.nodes = append(s.nodes, n)

	return nil
}

// RemoveLast removes the most recently added node together with its buffer.
// It reports false when the set is empty.
func (s *NodeSet) RemoveLast() (*Node, bool) {
	if len(s.nodes) == 0 {
		return nil, false
	}

	last := len(s.nodes) - 1
	n := s.nodes[last]
	s.nodes[last] = nil
	s.nodes = s.nodes[:last]

	return n, true
}

// NextAddress synthesizes a free address of the form 192.168.x.y, starting
// from host number Len()+1.
func (s *NodeSet) NextAddress() Address {
	for host := len(s.nodes) + 1; ; host++ {
		addr := hostAddress(host)
		if !s.Contains(addr) {
			return addr
		}
	}
}

func hostAddress(host int) Address {
	idx := host - 1

	return Address(fmt.Sprintf("192.168.%d.%d", 1+idx/254, 1+idx%254))
}

// Snapshot copies the state of every node in insertion order.
func (s *NodeSet) Snapshot() []NodeSnapshot {
	snapshots := make([]NodeSnapshot, len(s.nodes))
	for i, n := range s.nodes {
		snapshots[i] = n.Snapshot()
	}

	return snapshots
}
