package cluster

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// CheckFunc é uma verificação de saúde. Retorna erro se a dependência falhou.
type CheckFunc func() error

// InfoFunc devolve um valor informativo (tamanho da fila, partidas ativas...)
// que aparece na resposta mas nunca derruba o status.
type InfoFunc func() any

// HealthAggregator registra várias verificações e as expõe em um único endpoint.
// O Consul consulta este endpoint no check HTTP do serviço.
type HealthAggregator struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	info   map[string]InfoFunc
}

// HealthReport é o corpo JSON de /health.
type HealthReport struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
	Checks []string          `json:"checks"`
	Info   map[string]any    `json:"info,omitempty"`
}

func NewHealthAggregator() *HealthAggregator {
	return &HealthAggregator{
		checks: make(map[string]CheckFunc),
		info:   make(map[string]InfoFunc),
	}
}

func (h *HealthAggregator) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthAggregator) AddInfo(name string, info InfoFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info[name] = info
}

// Report executa todas as verificações.
func (h *HealthAggregator) Report() HealthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	report := HealthReport{Status: "healthy", Checks: make([]string, 0, len(h.checks))}
	for name, check := range h.checks {
		report.Checks = append(report.Checks, name)
		if err := check(); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[name] = err.Error()
		}
	}
	sort.Strings(report.Checks)
	if len(report.Failed) > 0 {
		report.Status = "unhealthy"
	}

	if len(h.info) > 0 {
		report.Info = make(map[string]any, len(h.info))
		for name, info := range h.info {
			report.Info[name] = info()
		}
	}
	return report
}

// Handler devolve 200 se todas as verificações passarem e 503 caso contrário.
func (h *HealthAggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Report()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if report.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// NewHealthServer cria um servidor que responde só /health. É usado quando o
// check do Consul aponta para uma porta diferente da do serviço.
func NewHealthServer(addr string, h *HealthAggregator) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.Handler()).Methods(http.MethodGet)
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
