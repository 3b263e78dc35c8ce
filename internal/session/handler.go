// Package session traduz as ações do protocolo websocket em chamadas ao
// matchmaker e devolve os eventos para os jogadores.
package session

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"gesturejokenpo/internal/clock"
	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/matchmaker"
	"gesturejokenpo/internal/network"
	"gesturejokenpo/internal/services/events"
	"gesturejokenpo/internal/session/message"
)

const (
	// DefaultCaptureDelay é a janela entre o início da contagem e a captura da webcam.
	DefaultCaptureDelay = 2 * time.Second
	// DefaultRoundTimeout limita quanto tempo um jogador espera a jogada do outro.
	DefaultRoundTimeout = 60 * time.Second
)

// Config reúne as dependências do GameHandler.
type Config struct {
	Classifier   game.Classifier
	Publisher    events.Publisher
	Clock        clock.Clock
	MaxScore     int
	CaptureDelay time.Duration
	RoundTimeout time.Duration
}

// GameHandler implementa network.EventHandler e matchmaker.Notifier.
type GameHandler struct {
	mu       sync.Mutex
	sessions map[*network.Client]*PlayerSession

	matchmaker *matchmaker.Manager
	gateway    *network.Gateway
	clock      clock.Clock

	captureDelay time.Duration
	roundTimeout time.Duration
}

// NewGameHandler cria o handler e o matchmaker que ele alimenta.
func NewGameHandler(cfg Config) *GameHandler {
	h := &GameHandler{
		sessions:     make(map[*network.Client]*PlayerSession),
		gateway:      network.NewGateway(),
		clock:        cfg.Clock,
		captureDelay: cfg.CaptureDelay,
		roundTimeout: cfg.RoundTimeout,
	}
	if h.clock == nil {
		h.clock = clock.UTC{}
	}
	if h.captureDelay <= 0 {
		h.captureDelay = DefaultCaptureDelay
	}
	if h.roundTimeout <= 0 {
		h.roundTimeout = DefaultRoundTimeout
	}
	h.matchmaker = matchmaker.New(matchmaker.Config{
		MaxScore:   cfg.MaxScore,
		Classifier: cfg.Classifier,
		Notifier:   h,
		Publisher:  cfg.Publisher,
	})
	return h
}

// Matchmaker expõe o registro de partidas, usado pelo health check.
func (h *GameHandler) Matchmaker() *matchmaker.Manager {
	return h.matchmaker
}

// Sessions devolve quantos jogadores estão conectados.
func (h *GameHandler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// --- Implementação da Interface network.EventHandler ---

func (h *GameHandler) OnConnect(_ context.Context, c *network.Client) {
	session := NewPlayerSession(c, h.clock.Now())

	h.mu.Lock()
	h.sessions[c] = session
	total := len(h.sessions)
	h.mu.Unlock()

	h.gateway.Register(session.ID, c)
	log.Printf("[Session] Player %s connected from %s. Total sessions: %d", session.ID, c.RemoteAddr(), total)

	message.SendTo(h.gateway, session.ID, message.Connect(session.ID))
}

func (h *GameHandler) OnDisconnect(c *network.Client) {
	h.mu.Lock()
	session, ok := h.sessions[c]
	delete(h.sessions, c)
	total := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.gateway.Unregister(session.ID)
	// Sai da fila ou abandona a partida; o adversário recebe opponent_left.
	h.matchmaker.Leave(session.ID)
	log.Printf("[Session] Player %s (%s) disconnected after %s. Total sessions: %d",
		session.ID, session.Client.RemoteAddr(), h.clock.Now().Sub(session.ConnectedAt).Round(time.Second), total)
}

// OnMessage despacha a ação recebida. Um panic aqui vira um evento de erro
// para o jogador em vez de derrubar a conexão.
func (h *GameHandler) OnMessage(ctx context.Context, c *network.Client, msg network.Message) {
	h.mu.Lock()
	session, ok := h.sessions[c]
	h.mu.Unlock()
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Session] ERROR: Panic handling %q for %s: %v\n%s", msg.Action, session.ID, r, debug.Stack())
			message.SendError(h.gateway, session.ID, codeInternal, fmt.Errorf("internal error handling %s", msg.Action))
		}
	}()

	action, err := network.ParseAction(msg.Action)
	if err != nil {
		message.SendError(h.gateway, session.ID, codeUnknownAction, err)
		return
	}

	switch action {
	case network.ActionStartGame:
		h.handleStartGame(ctx, session)
	case network.ActionStartCountdown:
		h.handleStartCountdown(session)
	case network.ActionCaptureWebcam:
		h.handleCaptureWebcam(ctx, session, msg.Payload)
	case network.ActionGetTimestamp:
		h.handleGetTimestamp(session)
	case network.ActionUnknown:
		message.SendError(h.gateway, session.ID, codeUnknownAction, network.ErrUnknownAction)
	}
}

// --- Implementação da Interface matchmaker.Notifier ---

func (h *GameHandler) RoundResolved(player string, res game.RoundResult, status game.Status) {
	message.SendTo(h.gateway, player, message.RoundResult(res, status))
}

func (h *GameHandler) OpponentLeft(player string, status game.Status) {
	message.SendTo(h.gateway, player, message.OpponentLeft(status))
}
