package api

import (
	"ICSFlowGen/internal/factory"
	"ICSFlowGen/internal/generator"
	"ICSFlowGen/internal/metrics"
	"ICSFlowGen/internal/model"
	"ICSFlowGen/internal/samples"
	"ICSFlowGen/internal/topology"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New()

// GenerateRequest is the body of POST /api/v1/generate.
type GenerateRequest struct {
	StartTime string `json:"start_time"` // RFC3339, empty means now
	Duration  string `json:"duration" validate:"required"`
	Tick      string `json:"tick" validate:"required"`
	Seed      int64  `json:"seed"`
	Format    string `json:"format" validate:"omitempty,oneof=text json"`
}

// Record is the JSON form of a flow record.
type Record struct {
	SrcIP     string `json:"src_ip"`
	DstIP     string `json:"dst_ip"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Sequence  int    `json:"sequence"`
	SrcMAC    string `json:"src_mac"`
	DstMAC    string `json:"dst_mac"`
	Protocol  string `json:"protocol"`
	Direction string `json:"direction"`
}

// GenerateResponse is returned for format "json".
type GenerateResponse struct {
	Summary generator.Summary `json:"summary"`
	Records []Record          `json:"records"`
}

// ProtocolsResponse lists what the server can generate.
type ProtocolsResponse struct {
	Loaded []string `json:"loaded"`
	Used   []string `json:"used"`
}

// APIHandler holds the dependencies for API handlers. The topology and store
// are read-only, so requests run concurrently with their own random source.
type APIHandler struct {
	topo      *topology.Topology
	store     *samples.Store
	metrics   *metrics.Registry
	maxWindow time.Duration
	maxTicks  int64
	now       func() time.Time
}

// NewAPIHandler bounds every generate request to maxWindow of simulated time
// and at most maxTicks scheduler steps.
func NewAPIHandler(topo *topology.Topology, store *samples.Store, reg *metrics.Registry, maxWindow time.Duration, maxTicks int64) *APIHandler {
	return &APIHandler{topo: topo, store: store, metrics: reg, maxWindow: maxWindow, maxTicks: maxTicks, now: time.Now}
}

// Router registers every route on a new gorilla/mux router.
func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthHandler).Methods("GET")
	r.HandleFunc("/api/v1/topology", h.topologyHandler).Methods("GET")
	r.HandleFunc("/api/v1/protocols", h.protocolsHandler).Methods("GET")
	r.HandleFunc("/api/v1/generate", h.generateHandler).Methods("POST")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	return r
}

func (h *APIHandler) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *APIHandler) topologyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.topo.Export())
}

func (h *APIHandler) protocolsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ProtocolsResponse{Loaded: h.store.Protocols(), Used: h.topo.Protocols()})
}

// generateHandler runs one bounded generation and returns its records.
func (h *APIHandler) generateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	start, tick, end, err := h.window(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	collected := &collectWriter{}
	gen, err := generator.New(h.topo, h.store, generator.NewRand(req.Seed),
		[]factory.NamedWriter{{Type: "http", Writer: collected}}, h.metrics, generator.Options{BatchSize: 512})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to prepare generation: %v", err), http.StatusInternalServerError)
		return
	}
	summary, err := gen.Run(r.Context(), generator.NewRunInfo(start, end), tick)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to generate flows: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Run-ID", summary.RunID)
	if req.Format == "json" {
		resp := GenerateResponse{Summary: summary, Records: make([]Record, len(collected.records))}
		for i, rec := range collected.records {
			resp.Records[i] = toRecord(rec)
		}
		writeJSON(w, resp)
		return
	}

	var buf bytes.Buffer
	for _, rec := range collected.records {
		buf.WriteString(rec.String())
		buf.WriteByte('\n')
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *APIHandler) window(req GenerateRequest) (time.Time, time.Duration, time.Time, error) {
	start := h.now()
	if req.StartTime != "" {
		var err error
		if start, err = time.Parse(time.RFC3339, req.StartTime); err != nil {
			return start, 0, start, fmt.Errorf("invalid start_time: %w", err)
		}
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		return start, 0, start, fmt.Errorf("invalid duration: %w", err)
	}
	if duration < 0 || duration > h.maxWindow {
		return start, 0, start, fmt.Errorf("duration must be between 0 and %s, got %s", h.maxWindow, duration)
	}
	tick, err := time.ParseDuration(req.Tick)
	if err != nil {
		return start, 0, start, fmt.Errorf("invalid tick: %w", err)
	}
	if tick <= 0 {
		return start, 0, start, fmt.Errorf("tick must be positive, got %s", tick)
	}
	// The loop runs duration/tick + 1 times.
	if steps := int64(duration / tick); steps >= h.maxTicks {
		return start, 0, start, fmt.Errorf("duration/tick must stay below %d steps, got %d", h.maxTicks, steps)
	}
	return start, tick, start.Add(duration), nil
}

// collectWriter keeps every record of a run in memory.
type collectWriter struct {
	mu      sync.Mutex
	records []model.FlowRecord
}

func (c *collectWriter) Write(batch []model.FlowRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, batch...)
	return nil
}

func (c *collectWriter) Close() error { return nil }

func toRecord(rec model.FlowRecord) Record {
	return Record{
		SrcIP:     rec.SrcIP,
		DstIP:     rec.DstIP,
		Message:   rec.Message,
		Timestamp: rec.Timestamp.Format(model.TimestampLayout),
		Sequence:  rec.Sequence,
		SrcMAC:    rec.SrcMAC,
		DstMAC:    rec.DstMAC,
		Protocol:  rec.Protocol,
		Direction: string(rec.Direction),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
