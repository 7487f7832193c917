package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/table-seating/internal/allocation"
	"github.com/eugenenazirov/table-seating/internal/eventstate"
	"github.com/eugenenazirov/table-seating/internal/invoice"
	"github.com/eugenenazirov/table-seating/internal/registry"
	"github.com/eugenenazirov/table-seating/internal/report"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires the registry, allocator and collaborators into HTTP handlers.
type Handler struct {
	allocator allocation.Allocator
	registry  *registry.Registry
	events    *eventstate.Service
	invoices  *invoice.Store

	clock func() time.Time

	mu              sync.RWMutex
	tablesUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithEventState sets the service behind GET /api/event-state.
func WithEventState(events *eventstate.Service) HandlerOption {
	return func(h *Handler) {
		h.events = events
	}
}

// WithInvoiceStore sets the store behind POST /api/invoices.
func WithInvoiceStore(store *invoice.Store) HandlerOption {
	return func(h *Handler) {
		h.invoices = store
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(alloc allocation.Allocator, reg *registry.Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		allocator: alloc,
		registry:  reg,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.events == nil {
		seed := make([]int, 0, reg.Len())
		for _, t := range reg.Ordered() {
			seed = append(seed, t.Capacity())
		}
		h.events = eventstate.New(seed)
	}
	if h.invoices == nil {
		h.invoices = invoice.NewStore(invoice.DefaultBaseDir)
	}
	h.tablesUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListTables(w http.ResponseWriter, r *http.Request) {
	_ = r
	tables := h.registry.Ordered()

	resp := tablesResponse{
		Tables:        make([]tableDTO, 0, len(tables)),
		UpdatedAt:     h.currentTablesUpdatedAt(),
		TotalCapacity: 0,
	}
	for _, t := range tables {
		resp.Tables = append(resp.Tables, toTableDTO(t))
		resp.TotalCapacity += t.Capacity()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}

	table, err := h.registry.Get(id)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableDTO(table))
}

func (h *Handler) handlePutTable(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}

	var req capacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.Capacity == nil {
		writeError(w, http.StatusBadRequest, "Invalid capacity", "capacity is required")
		return
	}

	if err := h.registry.SetCapacity(id, *req.Capacity); err != nil {
		writeRegistryError(w, err)
		return
	}
	h.markTablesUpdated()

	table, err := h.registry.Get(id)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := tableResponse{
		tableDTO:  toTableDTO(table),
		UpdatedAt: h.currentTablesUpdatedAt(),
		Message:   "Table capacity updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.Cards <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "cards must be a positive integer")
		return
	}

	start := time.Now()
	result, err := h.allocator.Allocate(h.registry, req.Cards)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}
	if result.Assigned > 0 {
		h.markTablesUpdated()
	}

	resp := allocateResponse{
		Cards:             result.Requested,
		Assigned:          result.Assigned,
		Unassigned:        result.Unassigned,
		Shortfall:         result.Shortfall(),
		Strategy:          string(result.Strategy),
		Allocations:       make([]allocationDTO, 0, len(result.Allocations)),
		Lines:             report.AllocationLines(result),
		RemainingCapacity: h.registry.TotalCapacity(),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	for _, a := range result.Allocations {
		resp.Allocations = append(resp.Allocations, allocationDTO{TableID: a.TableID, Cards: a.Cards})
	}
	if result.Shortfall() {
		resp.Suggestion = fmt.Sprintf("Only %d of %d cards could be seated; free up table capacity for the remaining %d", result.Assigned, result.Requested, result.Unassigned)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = report.Write(w, report.Render(h.registry))
}

func (h *Handler) handleEventState(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.events.Snapshot())
}

func (h *Handler) handleSaveInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoice.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	saved, err := h.invoices.Save(req)
	if err != nil {
		if errors.Is(err, invoice.ErrInvalidInvoice) {
			writeError(w, http.StatusBadRequest, "Invalid invoice", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal error", "invoice could not be stored")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) currentTablesUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tablesUpdatedAt
}

func (h *Handler) markTablesUpdated() {
	h.mu.Lock()
	h.tablesUpdatedAt = h.clock()
	h.mu.Unlock()
}

func tableIDFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid table", fmt.Sprintf("table id %q is not an integer", raw))
		return 0, false
	}
	return id, true
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidIdentity):
		writeError(w, http.StatusNotFound, "Table not found", err.Error())
	case errors.Is(err, registry.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, "Invalid capacity", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type capacityRequest struct {
	Capacity *int `json:"capacity"`
}

type allocateRequest struct {
	Cards int `json:"cards"`
}

type tableDTO struct {
	ID       int `json:"id"`
	Capacity int `json:"capacity"`
}

func toTableDTO(t registry.Table) tableDTO {
	return tableDTO{ID: t.ID(), Capacity: t.Capacity()}
}

type tablesResponse struct {
	Tables        []tableDTO `json:"tables"`
	TotalCapacity int        `json:"totalCapacity"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type tableResponse struct {
	tableDTO
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type allocationDTO struct {
	TableID int `json:"table"`
	Cards   int `json:"cards"`
}

type allocateResponse struct {
	Cards             int             `json:"cards"`
	Assigned          int             `json:"assigned"`
	Unassigned        int             `json:"unassigned"`
	Shortfall         bool            `json:"shortfall"`
	Strategy          string          `json:"strategy"`
	Allocations       []allocationDTO `json:"allocations"`
	Lines             []string        `json:"lines"`
	RemainingCapacity int             `json:"remainingCapacity"`
	CalculationTimeMs int64           `json:"calculationTimeMs"`
	Suggestion        string          `json:"suggestion,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
