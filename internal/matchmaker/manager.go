// Package matchmaker mantém a fila de espera e o índice de partidas ativas.
// Todo acesso à fila e ao índice passa por um único mutex; cada partida tem o
// seu próprio lock para as rodadas, então partidas diferentes não se bloqueiam.
package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/services/events"
)

var (
	ErrAlreadyQueued  = errors.New("player already in queue or in a game")
	ErrPlayerNotFound = errors.New("player not found")
	ErrGameNotFound   = errors.New("game not found")
)

// Notifier entrega aos jogadores os eventos que nascem dentro do matchmaker.
// O GameHandler implementa esta interface usando o Gateway.
type Notifier interface {
	RoundResolved(player string, res game.RoundResult, status game.Status)
	OpponentLeft(player string, status game.Status)
}

type noopNotifier struct{}

func (noopNotifier) RoundResolved(string, game.RoundResult, game.Status) {}
func (noopNotifier) OpponentLeft(string, game.Status)                    {}

// Config reúne as dependências do Manager.
type Config struct {
	MaxScore   int
	Classifier game.Classifier
	Notifier   Notifier
	Publisher  events.Publisher
	// NewID gera ids de partida. Padrão: uuid.NewString.
	NewID func() string
}

// Manager é o registro de sessões: fila de espera e partidas ativas.
type Manager struct {
	mu          sync.Mutex
	queue       []string
	games       map[string]*game.Game
	byPlayer    map[string]string
	joinSignals map[string]chan struct{}

	maxScore   int
	classifier game.Classifier
	notifier   Notifier
	publisher  events.Publisher
	newID      func() string
}

// New cria um Manager vazio.
func New(cfg Config) *Manager {
	m := &Manager{
		queue:       make([]string, 0),
		games:       make(map[string]*game.Game),
		byPlayer:    make(map[string]string),
		joinSignals: make(map[string]chan struct{}),
		maxScore:    cfg.MaxScore,
		classifier:  cfg.Classifier,
		notifier:    cfg.Notifier,
		publisher:   cfg.Publisher,
		newID:       cfg.NewID,
	}
	if m.maxScore <= 0 {
		m.maxScore = game.DefaultMaxScore
	}
	if m.notifier == nil {
		m.notifier = noopNotifier{}
	}
	if m.publisher == nil {
		m.publisher = events.Noop{}
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m
}

// Enqueue coloca o jogador na fila e bloqueia até ele ser pareado.
// Se o contexto acabar antes do pareamento, o jogador sai da fila.
func (m *Manager) Enqueue(ctx context.Context, player string) (game.Status, error) {
	m.mu.Lock()
	_, inGame := m.byPlayer[player]
	if inGame || lo.Contains(m.queue, player) {
		m.mu.Unlock()
		return game.Status{}, fmt.Errorf("%w: %s", ErrAlreadyQueued, player)
	}

	m.queue = append(m.queue, player)
	signal := make(chan struct{})
	m.joinSignals[player] = signal
	log.Printf("[Matchmaker] Player %s added to queue. Queue size: %d", player, len(m.queue))

	started := m.matchPlayersLocked()
	m.mu.Unlock()

	for _, g := range started {
		m.publish(events.SubjectGameStarted, g.ID, g.Status())
	}

	select {
	case <-signal:
	case <-ctx.Done():
		m.mu.Lock()
		_, matched := m.byPlayer[player]
		if !matched {
			m.removeFromQueueLocked(player)
			m.mu.Unlock()
			return game.Status{}, ctx.Err()
		}
		// O pareamento aconteceu junto com o cancelamento: a partida vale.
		m.mu.Unlock()
	}

	st, err := m.Status(player)
	if err != nil {
		return game.Status{}, fmt.Errorf("player %s left the queue before a match: %w", player, err)
	}
	return st, nil
}

// matchPlayersLocked cria partidas com os dois mais antigos da fila enquanto houver pares.
func (m *Manager) matchPlayersLocked() []*game.Game {
	var started []*game.Game
	for len(m.queue) >= 2 {
		player1 := m.queue[0]
		player2 := m.queue[1]

		g, err := game.New(m.newID(), player1, player2, m.maxScore, m.classifier)
		if err != nil {
			// Só acontece com ids repetidos na fila, o que Enqueue impede.
			log.Printf("[Matchmaker] ERROR: Failed to create game for %s and %s: %v", player1, player2, err)
			m.queue = m.queue[1:]
			continue
		}
		m.queue = m.queue[2:]

		m.games[g.ID] = g
		m.byPlayer[player1] = g.ID
		m.byPlayer[player2] = g.ID
		m.fireJoinSignalLocked(player1)
		m.fireJoinSignalLocked(player2)

		log.Printf("[Matchmaker] MATCH FOUND! Game %s started between %s and %s. Queue size: %d", g.ID, player1, player2, len(m.queue))
		started = append(started, g)
	}
	return started
}

func (m *Manager) fireJoinSignalLocked(player string) {
	if signal, ok := m.joinSignals[player]; ok {
		close(signal)
		delete(m.joinSignals, player)
	}
}

func (m *Manager) removeFromQueueLocked(player string) bool {
	if !lo.Contains(m.queue, player) {
		return false
	}
	m.queue = lo.Without(m.queue, player)
	m.fireJoinSignalLocked(player)
	log.Printf("[Matchmaker] Player %s left the queue. Queue size: %d", player, len(m.queue))
	return true
}

func (m *Manager) gameOf(player string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPlayer[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, player)
	}
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

// PlayRound encaminha a imagem para a partida do jogador e espera a rodada.
// A chamada que resolve a rodada avisa os dois jogadores pelo Notifier.
func (m *Manager) PlayRound(ctx context.Context, player string, image []byte) (game.RoundResult, game.Status, error) {
	play, err := m.Submit(ctx, player, image)
	if err != nil {
		return game.RoundResult{}, game.Status{}, err
	}
	res, err := play.Wait(ctx)
	return res, play.Status(), err
}

// Submit registra a jogada sem esperar o adversário. Se ela fechar a rodada,
// o resultado é publicado e os dois jogadores são avisados antes do retorno.
func (m *Manager) Submit(ctx context.Context, player string, image []byte) (*game.Play, error) {
	g, err := m.gameOf(player)
	if err != nil {
		return nil, err
	}

	play, err := g.Submit(ctx, player, image)
	if err != nil || !play.Resolver() {
		return play, err
	}

	// Para quem resolveu, Wait não bloqueia.
	res, _ := play.Wait(ctx)
	status := g.Status()
	m.publish(events.SubjectRoundResolved, g.ID, map[string]any{
		"round":   res.Round,
		"winner":  res.Winner,
		"choices": res.Choices,
		"status":  status,
	})
	if status.Winner != "" {
		m.release(g)
		log.Printf("[Matchmaker] Game %s finished. Winner: %s", g.ID, status.Winner)
		m.publish(events.SubjectGameFinished, g.ID, status)
	}

	m.notifier.RoundResolved(g.Player1(), res, status)
	m.notifier.RoundResolved(g.Player2(), res, status)
	return play, nil
}

// RequestCountdown marca o clique do jogador e informa se os dois já clicaram.
func (m *Manager) RequestCountdown(player string) (opponent string, bothReady bool, err error) {
	g, err := m.gameOf(player)
	if err != nil {
		return "", false, err
	}
	opponent, err = g.Opponent(player)
	if err != nil {
		return "", false, err
	}
	bothReady, err = g.RequestCountdown(player)
	return opponent, bothReady, err
}

// Leave remove o jogador da fila ou encerra a partida dele por abandono.
func (m *Manager) Leave(player string) {
	m.mu.Lock()
	if m.removeFromQueueLocked(player) {
		m.mu.Unlock()
		return
	}
	id, ok := m.byPlayer[player]
	g := m.games[id]
	m.mu.Unlock()
	if !ok || g == nil {
		return
	}

	opponent, err := g.Abandon(player)
	m.release(g)
	if err != nil {
		// A partida já tinha terminado normalmente.
		return
	}

	status := g.Status()
	log.Printf("[Matchmaker] Player %s left game %s. %s wins by forfeit.", player, g.ID, opponent)
	m.publish(events.SubjectGameAbandoned, g.ID, map[string]any{
		"leaver": player,
		"status": status,
	})
	m.notifier.OpponentLeft(opponent, status)
}

// release tira a partida do índice ativo. Pode ser chamado mais de uma vez.
func (m *Manager) release(g *game.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return
	}
	delete(m.games, g.ID)
	for _, p := range []string{g.Player1(), g.Player2()} {
		if m.byPlayer[p] == g.ID {
			delete(m.byPlayer, p)
		}
	}
}

// Status devolve o snapshot da partida do jogador.
func (m *Manager) Status(player string) (game.Status, error) {
	g, err := m.gameOf(player)
	if err != nil {
		return game.Status{}, err
	}
	return g.Status(), nil
}

// GameStatus devolve o snapshot de uma partida ativa pelo id.
func (m *Manager) GameStatus(gameID string) (game.Status, error) {
	m.mu.Lock()
	g, ok := m.games[gameID]
	m.mu.Unlock()
	if !ok {
		return game.Status{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g.Status(), nil
}

// Opponent devolve o adversário do jogador na partida ativa.
func (m *Manager) Opponent(player string) (string, error) {
	g, err := m.gameOf(player)
	if err != nil {
		return "", err
	}
	return g.Opponent(player)
}

// Queue devolve uma cópia da fila de espera, do mais antigo para o mais novo.
func (m *Manager) Queue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queue...)
}

// ActiveGames devolve quantas partidas estão em andamento.
func (m *Manager) ActiveGames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

func (m *Manager) publish(subject, gameID string, data any) {
	m.publisher.Publish(events.Event{
		Subject:    subject,
		GameID:     gameID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}
