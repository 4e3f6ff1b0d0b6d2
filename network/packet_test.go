package network

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Packet", func() {
	It("should encode type and priority by name", func() {
		p := Packet{
			ID:       3,
			Size:     64,
			Type:     PacketTypeVideo,
			Priority: PriorityHigh,
			Sender:   "192.168.1.1",
			Receiver: "192.168.1.2",
		}

		data, err := json.Marshal(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"type":"Video"`))
		Expect(string(data)).To(ContainSubstring(`"priority":"High"`))

		var decoded Packet
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(p))
	})

	It("should reject unknown names", func() {
		var t PacketType
		Expect(t.UnmarshalText([]byte("Fax"))).NotTo(Succeed())

		var pr Priority
		Expect(pr.UnmarshalText([]byte("Urgent"))).NotTo(Succeed())
	})

	It("should name out-of-range values", func() {
		Expect(PacketType(7).String()).To(Equal("PacketType(7)"))
		Expect(Priority(9).String()).To(Equal("Priority(9)"))
	})
})
