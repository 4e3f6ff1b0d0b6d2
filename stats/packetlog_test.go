package stats

import (
	"github.com/sarchlab/pktsim/network"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func entry(id uint64) LogEntry {
	return LogEntry{Tick: id, Packet: network.Packet{ID: id}}
}

func ids(entries []LogEntry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Packet.ID
	}

	return out
}

var _ = Describe("PacketLog", func() {
	It("should keep everything when unbounded", func() {
		l := NewPacketLog(0)
		for i := uint64(1); i <= 5; i++ {
			l.Append(entry(i))
		}

		Expect(l.Len()).To(Equal(5))
		Expect(l.Total()).To(Equal(uint64(5)))
		Expect(ids(l.Recent(0))).To(Equal([]uint64{1, 2, 3, 4, 5}))
		Expect(ids(l.Recent(2))).To(Equal([]uint64{4, 5}))
	})

	It("should retain only the newest entries when bounded", func() {
		l := NewPacketLog(3)
		for i := uint64(1); i <= 7; i++ {
			l.Append(entry(i))
		}

		Expect(l.Len()).To(Equal(3))
		Expect(l.Total()).To(Equal(uint64(7)))
		Expect(ids(l.Recent(0))).To(Equal([]uint64{5, 6, 7}))
		Expect(ids(l.Recent(1))).To(Equal([]uint64{7}))
		Expect(ids(l.Recent(10))).To(Equal([]uint64{5, 6, 7}))
	})

	It("should handle a partially filled ring", func() {
		l := NewPacketLog(3)
		l.Append(entry(1))
		l.Append(entry(2))

		Expect(ids(l.Recent(0))).To(Equal([]uint64{1, 2}))
	})

	It("should return an empty slice when empty", func() {
		Expect(NewPacketLog(3).Recent(5)).To(BeEmpty())
	})

	It("should tag outcomes", func() {
		admitted := LogEntry{Outcome: OutcomeAdmitted}
		dropped := LogEntry{Outcome: OutcomeDropped, Reason: "buffer-full"}

		Expect(admitted.Admitted()).To(BeTrue())
		Expect(dropped.Admitted()).To(BeFalse())
		Expect(dropped.Outcome.String()).To(Equal("dropped"))
	})
})
