package stats

import (
	"github.com/sarchlab/pktsim/network"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Summarize", func() {
	It("should handle no nodes", func() {
		s := Summarize(Counters{Processed: 1, Dropped: 1}, nil)

		Expect(s.Nodes).To(Equal(0))
		Expect(s.Generated).To(Equal(uint64(2)))
		Expect(s.DropRate).To(Equal(0.5))
		Expect(s.MeanLoad).To(Equal(0.0))
		Expect(s.LoadStdDev).To(Equal(0.0))
	})

	It("should have zero spread for a single node", func() {
		s := Summarize(Counters{}, []network.NodeSnapshot{
			{Address: "A", Capacity: 4, Size: 1, Load: 0.25},
		})

		Expect(s.MeanLoad).To(Equal(0.25))
		Expect(s.MaxLoad).To(Equal(0.25))
		Expect(s.LoadStdDev).To(Equal(0.0))
		Expect(s.DropRate).To(Equal(0.0))
	})

	It("should aggregate node loads", func() {
		s := Summarize(Counters{Processed: 3, Dropped: 1}, []network.NodeSnapshot{
			{Address: "A", Capacity: 2, Size: 2, Load: 1.0},
			{Address: "B", Capacity: 2, Size: 1, Load: 0.5},
		})

		Expect(s.Nodes).To(Equal(2))
		Expect(s.Buffered).To(Equal(3))
		Expect(s.MeanLoad).To(BeNumerically("~", 0.75, 1e-9))
		Expect(s.MaxLoad).To(Equal(1.0))
		Expect(s.LoadStdDev).To(BeNumerically("~", 0.353553, 1e-5))
		Expect(s.DropRate).To(Equal(0.25))
	})
})
