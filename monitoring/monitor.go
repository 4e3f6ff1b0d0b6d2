// Package monitoring serves the node loads and the simulation controls over
// HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pktsim/logging"
	"github.com/sarchlab/pktsim/monitoring/web"
	"github.com/sarchlab/pktsim/network"
	"github.com/sarchlab/pktsim/simulation"
	"github.com/sarchlab/pktsim/stats"
)

// Controller is the part of the simulation the monitor can drive.
type Controller interface {
	simulation.Snapshotter

	CurrentTick() uint64
	Tick() simulation.TickReport
	AddNode(capacity int) (network.NodeSnapshot, error)
	RemoveNode() (network.NodeSnapshot, error)
	Node(addr network.Address) (simulation.NodeDetail, error)
	Packets(limit int) []stats.LogEntry
}

const defaultPacketLimit = 100

// Monitor turns a simulation into a server that allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	sim             Controller
	board           *simulation.LoadBoard
	portNumber      int
	profileDuration time.Duration
	log             logrus.FieldLogger

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a monitor that reads node loads from the board and
// sends control requests to the simulation.
func NewMonitor(sim Controller, board *simulation.LoadBoard) *Monitor {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return &Monitor{
		sim:             sim,
		board:           board,
		profileDuration: time.Second,
		log:             discard,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger logrus.FieldLogger) *Monitor {
	m.log = logging.Component(logger, "monitor")
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/nodes", m.listNodes).Methods(http.MethodGet)
	r.HandleFunc("/api/nodes", m.addNode).Methods(http.MethodPost)
	r.HandleFunc("/api/nodes", m.removeNode).Methods(http.MethodDelete)
	r.HandleFunc("/api/node/{address}", m.nodeDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/packets", m.listPackets).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/tick", m.tick).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.NotFoundHandler = http.FileServer(web.GetAssets())

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("start monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.WithError(err).Error("monitor stopped")
		}
	}()

	return url, nil
}

// Shutdown stops the server gracefully.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.log.WithError(err).Warn("failed to write response")
	}
}

type errorRsp struct {
	Error string `json:"error"`
}

func (m *Monitor) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, network.ErrUnknownAddress):
		status = http.StatusNotFound
	case errors.Is(err, simulation.ErrNoNode),
		errors.Is(err, network.ErrDuplicateAddress):
		status = http.StatusConflict
	case errors.Is(err, network.ErrInvalidCapacity),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	m.writeJSON(w, status, errorRsp{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func intParam(r *http.Request, name string, fallback int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer",
			errBadRequest, name, s)
	}

	return v, nil
}

// listNodes lists the nodes on the board in insertion order, or sorted by
// buffer level or load when ?sort=level or ?sort=percent is given.
func (m *Monitor) listNodes(w http.ResponseWriter, r *http.Request) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod != "" && sortMethod != "level" && sortMethod != "percent" {
		m.writeError(w, fmt.Errorf(
			"%w: invalid sort method %s, allowed values are level and percent",
			errBadRequest, sortMethod))
		return
	}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		m.writeError(w, err)
		return
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil {
		m.writeError(w, err)
		return
	}

	nodes := sortAndSelectNodes(m.board.Nodes(), sortMethod, limit, offset)

	m.writeJSON(w, http.StatusOK, nodes)
}

func sortAndSelectNodes(
	nodes []network.NodeSnapshot,
	sortMethod string,
	limit, offset int,
) []network.NodeSnapshot {
	switch sortMethod {
	case "level":
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].Size != nodes[j].Size {
				return nodes[i].Size > nodes[j].Size
			}

			return nodes[i].Load > nodes[j].Load
		})
	case "percent":
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].Load != nodes[j].Load {
				return nodes[i].Load > nodes[j].Load
			}

			return nodes[i].Size > nodes[j].Size
		})
	}

	offset = min(max(offset, 0), len(nodes))
	nodes = nodes[offset:]

	if limit > 0 && limit < len(nodes) {
		nodes = nodes[:limit]
	}

	if nodes == nil {
		nodes = []network.NodeSnapshot{}
	}

	return nodes
}

func (m *Monitor) addNode(w http.ResponseWriter, r *http.Request) {
	capacity, err := intParam(r, "capacity", 0)
	if err != nil {
		m.writeError(w, err)
		return
	}

	node, err := m.sim.AddNode(capacity)
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.board.Refresh(m.sim)
	m.writeJSON(w, http.StatusCreated, node)
}

func (m *Monitor) removeNode(w http.ResponseWriter, _ *http.Request) {
	node, err := m.sim.RemoveNode()
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.board.Refresh(m.sim)
	m.writeJSON(w, http.StatusOK, node)
}

func (m *Monitor) nodeDetail(w http.ResponseWriter, r *http.Request) {
	addr := network.Address(mux.Vars(r)["address"])

	detail, err := m.sim.Node(addr)
	if err != nil {
		m.writeError(w, err)
		return
	}

	if r.URL.Query().Get("dump") == "" {
		m.writeJSON(w, http.StatusOK, detail)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&detail)
	serializer.SetMaxDepth(2)

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) listPackets(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPacketLimit)
	if err != nil {
		m.writeError(w, err)
		return
	}

	entries := m.sim.Packets(limit)
	if entries == nil {
		entries = []stats.LogEntry{}
	}

	m.writeJSON(w, http.StatusOK, entries)
}

type statsRsp struct {
	Tick        uint64        `json:"tick"`
	Summary     stats.Summary `json:"summary"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	Refreshes   uint64        `json:"refreshes"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	snapshot := m.board.Snapshot()

	m.writeJSON(w, http.StatusOK, statsRsp{
		Tick:        snapshot.Tick,
		Summary:     snapshot.Summary,
		RefreshedAt: m.board.RefreshedAt(),
		Refreshes:   m.board.Refreshes(),
	})
}

func (m *Monitor) tick(w http.ResponseWriter, _ *http.Request) {
	report := m.sim.Tick()

	m.board.Refresh(m.sim)
	m.writeJSON(w, http.StatusOK, report)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	rsp := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		rsp = append(rsp, b.status())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, http.StatusOK, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.writeError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.writeError(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.writeError(w, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, prof)
}
