package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/simulation"
	"github.com/sarchlab/pktsim/stats"
)

var _ = Describe("Monitor", func() {
	var (
		sim     *simulation.Simulation
		board   *simulation.LoadBoard
		m       *Monitor
		handler http.Handler
	)

	do := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		sim, err = simulation.MakeBuilder().
			WithDefaultCapacity(2).
			WithRandomSource(&scriptedRandom{
				values: []float64{0.0, 0.9, 0.0, 0.0, 0.0},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		board = simulation.NewLoadBoard()
		board.Refresh(sim)

		m = NewMonitor(sim, board).WithProfileDuration(10 * time.Millisecond)
		handler = m.Router()
	})

	It("should list the nodes from the board", func() {
		rec := do(http.MethodGet, "/api/nodes")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var nodes []network.NodeSnapshot
		decode(rec, &nodes)
		Expect(nodes).To(HaveLen(2))
		Expect(nodes[0].Address).To(Equal(network.Address("192.168.1.1")))
		Expect(nodes[1].Capacity).To(Equal(2))
	})

	It("should not show ticks until the board is refreshed", func() {
		sim.Tick()

		var nodes []network.NodeSnapshot
		decode(do(http.MethodGet, "/api/nodes"), &nodes)
		Expect(nodes[0].Size).To(Equal(0))

		board.Refresh(sim)

		decode(do(http.MethodGet, "/api/nodes"), &nodes)
		Expect(nodes[0].Size).To(Equal(1))
	})

	It("should sort and page the nodes", func() {
		_, err := sim.AddNodeWithAddress("10.0.0.9", 10)
		Expect(err).NotTo(HaveOccurred())
		sim.Tick()
		board.Refresh(sim)

		var nodes []network.NodeSnapshot
		decode(do(http.MethodGet, "/api/nodes?sort=percent&limit=1"), &nodes)
		Expect(nodes).To(HaveLen(1))
		Expect(nodes[0].Address).To(Equal(network.Address("192.168.1.1")))

		decode(do(http.MethodGet, "/api/nodes?sort=level&offset=1"), &nodes)
		Expect(nodes).To(HaveLen(2))

		decode(do(http.MethodGet, "/api/nodes?offset=5"), &nodes)
		Expect(nodes).To(BeEmpty())

		rec := do(http.MethodGet, "/api/nodes?sort=name")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should add and remove nodes", func() {
		rec := do(http.MethodPost, "/api/nodes?capacity=7")
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var added network.NodeSnapshot
		decode(rec, &added)
		Expect(added.Address).To(Equal(network.Address("192.168.1.3")))
		Expect(added.Capacity).To(Equal(7))
		Expect(board.Nodes()).To(HaveLen(3))

		rec = do(http.MethodDelete, "/api/nodes")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var removed network.NodeSnapshot
		decode(rec, &removed)
		Expect(removed.Address).To(Equal(added.Address))
		Expect(board.Nodes()).To(HaveLen(2))
	})

	It("should reject a bad capacity", func() {
		rec := do(http.MethodPost, "/api/nodes?capacity=lots")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("capacity"))
	})

	It("should report a conflict when no node is left", func() {
		Expect(do(http.MethodDelete, "/api/nodes").Code).
			To(Equal(http.StatusOK))
		Expect(do(http.MethodDelete, "/api/nodes").Code).
			To(Equal(http.StatusOK))

		rec := do(http.MethodDelete, "/api/nodes")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should show node detail", func() {
		sim.Tick()

		rec := do(http.MethodGet, "/api/node/192.168.1.1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var detail simulation.NodeDetail
		decode(rec, &detail)
		Expect(detail.Size).To(Equal(1))
		Expect(detail.Packets).To(HaveLen(1))
		Expect(detail.Packets[0].Receiver).
			To(Equal(network.Address("192.168.1.2")))
	})

	It("should dump node detail", func() {
		rec := do(http.MethodGet, "/api/node/192.168.1.1?dump=1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for an unknown node", func() {
		rec := do(http.MethodGet, "/api/node/10.0.0.1")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should tick and list packets", func() {
		for i := 0; i < 3; i++ {
			Expect(do(http.MethodPost, "/api/tick").Code).
				To(Equal(http.StatusOK))
		}

		var entries []stats.LogEntry
		decode(do(http.MethodGet, "/api/packets?limit=2"), &entries)
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Tick).To(Equal(uint64(2)))
		Expect(entries[1].Outcome).To(Equal(stats.OutcomeDropped))
		Expect(entries[1].Reason).To(Equal("buffer-full"))
	})

	It("should report stats from the board", func() {
		do(http.MethodPost, "/api/tick")

		var rsp statsRsp
		decode(do(http.MethodGet, "/api/stats"), &rsp)
		Expect(rsp.Tick).To(Equal(uint64(1)))
		Expect(rsp.Summary.Processed).To(Equal(uint64(1)))
		Expect(rsp.Summary.Nodes).To(Equal(2))
		Expect(rsp.Refreshes).To(Equal(uint64(2)))
	})

	It("should reject wrong methods", func() {
		rec := do(http.MethodGet, "/api/tick")
		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))

		rec = do(http.MethodPut, "/api/nodes")
		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should return 404 for unknown paths", func() {
		rec := do(http.MethodGet, "/api/unknown")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("run", 10)
		sim.AcceptHook(bar)
		sim.Tick()
		sim.Tick()

		var bars []progressRsp
		decode(do(http.MethodGet, "/api/progress"), &bars)
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("run"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(2)))

		m.CompleteProgressBar(bar)

		decode(do(http.MethodGet, "/api/progress"), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		decode(rec, &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		rec := do(http.MethodGet, "/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the dashboard", func() {
		rec := do(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("<!DOCTYPE html>"))
	})

	It("should fall back to a random port below 1000", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
