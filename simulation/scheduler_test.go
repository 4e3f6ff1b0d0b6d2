package simulation

import (
	"context"
	"time"

	"github.com/sarchlab/pktsim/network"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scheduler", func() {
	var (
		s     *Simulation
		board *LoadBoard
	)

	BeforeEach(func() {
		s = twoNodeSim(100, network.DrainOwnerMatch)
		board = NewLoadBoard()
	})

	It("should stop after the tick limit", func() {
		sched := NewScheduler(s, board).
			WithTickInterval(time.Millisecond).
			WithPresentationInterval(time.Millisecond).
			WithMaxTicks(5)

		Expect(sched.Run(context.Background())).To(Succeed())

		Expect(s.CurrentTick()).To(Equal(uint64(5)))
		Expect(board.Snapshot().Tick).To(Equal(uint64(5)))
		Expect(board.Summary().Processed).To(Equal(uint64(5)))
		Expect(board.Nodes()[0].Size).To(Equal(5))
	})

	It("should stop when the context is cancelled", func() {
		sched := NewScheduler(s, board).
			WithTickInterval(time.Millisecond).
			WithPresentationInterval(time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- sched.Run(ctx)
		}()

		Eventually(s.CurrentTick).Should(BeNumerically(">=", 3))
		Eventually(board.Refreshes).Should(BeNumerically(">=", 3))

		cancel()
		Eventually(done).Should(Receive(BeNil()))

		ticks := s.CurrentTick()
		Consistently(s.CurrentTick, 20*time.Millisecond).Should(Equal(ticks))
	})

	It("should reject non-positive intervals", func() {
		sched := NewScheduler(s, board).WithTickInterval(0)

		Expect(sched.Run(context.Background())).To(HaveOccurred())
		Expect(s.CurrentTick()).To(Equal(uint64(0)))
	})
})

var _ = Describe("LoadBoard", func() {
	var (
		mockCtrl *gomock.Controller
		src      *MockSnapshotter
		board    *LoadBoard
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		src = NewMockSnapshotter(mockCtrl)
		board = NewLoadBoard()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start empty", func() {
		Expect(board.Nodes()).To(BeEmpty())
		Expect(board.Refreshes()).To(Equal(uint64(0)))
		Expect(board.RefreshedAt().IsZero()).To(BeTrue())
	})

	It("should keep the last snapshot", func() {
		snap := Snapshot{
			Tick: 4,
			Nodes: []network.NodeSnapshot{
				{Address: "A", Capacity: 2, Size: 1, Load: 0.5},
			},
		}
		snap.Summary.Processed = 3
		src.EXPECT().Snapshot().Return(snap)

		board.Refresh(src)

		Expect(board.Snapshot()).To(Equal(snap))
		Expect(board.Nodes()).To(Equal(snap.Nodes))
		Expect(board.Summary().Processed).To(Equal(uint64(3)))
		Expect(board.Refreshes()).To(Equal(uint64(1)))
		Expect(board.RefreshedAt().IsZero()).To(BeFalse())
	})

	It("should hand out copies of the node list", func() {
		src.EXPECT().Snapshot().Return(Snapshot{
			Nodes: []network.NodeSnapshot{{Address: "A"}},
		})
		board.Refresh(src)

		nodes := board.Nodes()
		nodes[0].Address = "B"

		Expect(board.Nodes()[0].Address).To(Equal(network.Address("A")))
	})
})
