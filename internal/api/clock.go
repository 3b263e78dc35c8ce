package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gesturejokenpo/internal/clock"
)

// TimestampResponse é o contrato dos endpoints de horário.
type TimestampResponse struct {
	Timestamp time.Time `json:"timestamp"`
}

// RegisterTimeRoutes adiciona os endpoints que os clientes usam para acertar o
// relógio local com o do servidor antes da contagem.
func RegisterTimeRoutes(r *mux.Router, c clock.Clock, delay time.Duration) {
	r.HandleFunc("/get_server_timestamp", CreateServerTimestampHandler(c)).Methods(http.MethodGet)
	r.HandleFunc("/get_timestamp_after_delay", CreateDelayedTimestampHandler(c, delay)).Methods(http.MethodGet)
}

// CreateServerTimestampHandler responde com o horário atual do servidor em UTC.
func CreateServerTimestampHandler(c clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, TimestampResponse{Timestamp: c.Now()})
	}
}

// CreateDelayedTimestampHandler responde com o horário atual mais delay.
func CreateDelayedTimestampHandler(c clock.Clock, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, TimestampResponse{Timestamp: c.After(delay)})
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
