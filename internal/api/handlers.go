package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket"

	"rectifier-monitor/internal/monitor"
	"rectifier-monitor/internal/websocket"
	"rectifier-monitor/internal/worklog"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from anywhere on the plant network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// APIHandler exposes read-only monitor snapshots and the mutable time-range
// setting to the presentation layer.
type APIHandler struct {
	monitors map[string]*monitor.ViewModel
	worklogs *worklog.Service
	hub      *websocket.Hub
}

func NewAPIHandler(monitors []*monitor.ViewModel, worklogs *worklog.Service, hub *websocket.Hub) *APIHandler {
	byGroup := make(map[string]*monitor.ViewModel, len(monitors))
	for _, vm := range monitors {
		byGroup[vm.Group()] = vm
	}
	return &APIHandler{monitors: byGroup, worklogs: worklogs, hub: hub}
}

// GetMonitor returns the current snapshot for one monitor group.
func (h *APIHandler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.monitors[chi.URLParam(r, "group")]
	if !ok {
		http.Error(w, "unknown monitor group", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, vm.Snapshot())
}

// SetTimeRange updates one device's time range and triggers an immediate
// refetch for that device.
func (h *APIHandler) SetTimeRange(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.monitors[chi.URLParam(r, "group")]
	if !ok {
		http.Error(w, "unknown monitor group", http.StatusNotFound)
		return
	}

	slaveID, err := strconv.Atoi(chi.URLParam(r, "slaveID"))
	if err != nil {
		http.Error(w, "invalid slave id", http.StatusBadRequest)
		return
	}

	var body struct {
		Range string `json:"range"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Range == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := vm.SetTimeRange(r.Context(), slaveID, body.Range); err != nil {
		log.Printf("Time-range change failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, vm.Snapshot())
}

// ListWorkLogs applies the requested filter/sort and returns the refreshed
// list.
func (h *APIHandler) ListWorkLogs(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("status")
	sortBy := r.URL.Query().Get("sort")

	if err := h.worklogs.Apply(r.Context(), filter, sortBy); err != nil {
		log.Printf("Work-log fetch failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.worklogs.Snapshot())
}

// HandleWebSocket upgrades the connection and registers the client; every
// applied update is then pushed as a snapshot message.
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 16)}
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	// Seed the new client with the current state of every group.
	for _, vm := range h.monitors {
		h.hub.BroadcastJSON("monitor", vm.Snapshot())
	}
	h.hub.BroadcastJSON("worklog", h.worklogs.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
