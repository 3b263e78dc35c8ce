// Package events publica o ciclo de vida das partidas para quem quiser ouvir
// (placar ao vivo, estatísticas, auditoria).
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Assuntos publicados.
const (
	SubjectGameStarted   = "jokenpo.game.started"
	SubjectRoundResolved = "jokenpo.round.resolved"
	SubjectGameFinished  = "jokenpo.game.finished"
	SubjectGameAbandoned = "jokenpo.game.abandoned"
)

// Event é o envelope de todo evento publicado.
type Event struct {
	Subject    string    `json:"subject"`
	GameID     string    `json:"gameId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// Publisher é o que o matchmaker usa para anunciar eventos.
type Publisher interface {
	Publish(evt Event)
}

// Noop descarta tudo. Usado quando NATS_URL não está configurado.
type Noop struct{}

func (Noop) Publish(Event) {}

// NATSPublisher publica cada evento como JSON no seu assunto.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[Events] ERROR: Failed to marshal event %s for game %s: %v", evt.Subject, evt.GameID, err)
		return
	}
	if err := p.conn.Publish(evt.Subject, data); err != nil {
		log.Printf("[Events] WARN: Failed to publish %s for game %s: %v", evt.Subject, evt.GameID, err)
	}
}

// Connect abre a conexão NATS com reconexão infinita, registrando as quedas no log.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] WARN: Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
	)
}
