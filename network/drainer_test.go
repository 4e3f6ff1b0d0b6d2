package network

import (
	"github.com/sarchlab/pktsim/sim/hooking"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Drainer", func() {
	var (
		mockCtrl *gomock.Controller
		set      *NodeSet
		a, b     *Node
		clock    *fakeClock
		router   *Router
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		set = NewNodeSet()
		a = mustNode("A", 2)
		b = mustNode("B", 2)
		Expect(set.Add(a)).To(Succeed())
		Expect(set.Add(b)).To(Succeed())

		clock = &fakeClock{tick: 1}
		router = NewRouter(set, clock)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("owner-match", func() {
		var drainer *Drainer

		BeforeEach(func() {
			drainer = NewDrainer(set, clock, DrainOwnerMatch)
		})

		It("should not drain packets sitting in the sender's buffer", func() {
			Expect(router.Route(&Packet{ID: 1, Sender: "A", Receiver: "B"})).
				To(BeTrue())
			Expect(router.Route(&Packet{ID: 2, Sender: "A", Receiver: "B"})).
				To(BeTrue())

			Expect(drainer.Drain(b)).To(Equal(0))
			Expect(a.Load()).To(Equal(1.0))

			clock.tick = 100
			Expect(drainer.DrainAll()).To(Equal(0))
			Expect(a.Size()).To(Equal(2))
		})

		It("should drain packets addressed to the buffer owner", func() {
			a.push(&Packet{ID: 1, Sender: "B", Receiver: "A"}, 1)
			a.push(&Packet{ID: 2, Sender: "A", Receiver: "B"}, 1)

			hook := NewMockHook(mockCtrl)
			drainer.AcceptHook(hook)
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosPacketDrained))
				Expect(ctx.Item.(*Packet).ID).To(Equal(uint64(1)))
				Expect(ctx.Detail).To(BeIdenticalTo(a))
			})

			Expect(drainer.DrainAll()).To(Equal(1))
			Expect(a.Size()).To(Equal(1))
			Expect(a.Load()).To(Equal(0.5))
			Expect(a.Packets()[0].ID).To(Equal(uint64(2)))
		})
	})

	Context("on-delivery", func() {
		var drainer *Drainer

		BeforeEach(func() {
			drainer = NewDrainer(set, clock, DrainOnDelivery)
		})

		It("should keep packets admitted in the current tick", func() {
			Expect(router.Route(&Packet{ID: 1, Sender: "A", Receiver: "B"})).
				To(BeTrue())

			Expect(drainer.DrainAll()).To(Equal(0))
			Expect(a.Load()).To(Equal(0.5))
		})

		It("should remove packets from the sender on the next tick", func() {
			Expect(router.Route(&Packet{ID: 1, Sender: "A", Receiver: "B"})).
				To(BeTrue())

			clock.tick = 2
			Expect(router.Route(&Packet{ID: 2, Sender: "B", Receiver: "A"})).
				To(BeTrue())

			Expect(drainer.DrainAll()).To(Equal(1))
			Expect(a.Load()).To(Equal(0.0))
			Expect(b.Load()).To(Equal(0.5))
		})

		It("should never drain without a clock", func() {
			drainer = NewDrainer(set, nil, DrainOnDelivery)
			a.push(&Packet{ID: 1, Sender: "A", Receiver: "B"}, 0)

			Expect(drainer.DrainAll()).To(Equal(0))
		})
	})
})

var _ = Describe("DrainPolicy", func() {
	It("should parse its own names", func() {
		for _, p := range []DrainPolicy{DrainOwnerMatch, DrainOnDelivery} {
			parsed, err := ParseDrainPolicy(p.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(p))
		}
	})

	It("should default to owner-match", func() {
		p, err := ParseDrainPolicy("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(DrainOwnerMatch))
	})

	It("should reject unknown names", func() {
		_, err := ParseDrainPolicy("teleport")
		Expect(err).To(HaveOccurred())
	})
})
