package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/network"
)

// PlayerSession representa um jogador único e conectado ao servidor.
// O ID vale apenas para esta conexão e nunca é reaproveitado.
type PlayerSession struct {
	ID          string
	Client      *network.Client
	ConnectedAt time.Time

	mu sync.Mutex
	// waiting é a jogada cuja rodada esta sessão está esperando.
	waiting *game.Play
}

// NewPlayerSession cria a sessão com um ID novo.
func NewPlayerSession(client *network.Client, now time.Time) *PlayerSession {
	return &PlayerSession{
		ID:          uuid.NewString(),
		Client:      client,
		ConnectedAt: now,
	}
}

// claimWait reserva a espera da rodada da jogada. Devolve false se alguém já
// espera por essa rodada; nesse caso a jogada só sobrescreveu a anterior.
func (s *PlayerSession) claimWait(play *game.Play) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if play.SameRound(s.waiting) {
		return false
	}
	s.waiting = play
	return true
}

func (s *PlayerSession) releaseWait(play *game.Play) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting == play {
		s.waiting = nil
	}
}
