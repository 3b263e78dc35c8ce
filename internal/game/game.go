// Package game contém o estado de uma partida entre dois jogadores e a
// sincronização das jogadas de cada rodada.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gesturejokenpo/internal/game/gesture"
)

// DefaultMaxScore é a pontuação que encerra a partida.
const DefaultMaxScore = 3

var (
	ErrPlayerNotInGame = errors.New("player is not part of this game")
	ErrGameOver        = errors.New("game is over")
	ErrOpponentLeft    = errors.New("opponent left the game")
)

// Classifier transforma a imagem enviada pelo jogador em um gesto.
// gesture.None ou gesture.Neutral significam que a jogada não vale.
type Classifier interface {
	Predict(ctx context.Context, image []byte) (gesture.Gesture, error)
}

// playerData é o estado de um jogador dentro da partida.
type playerData struct {
	clicked bool
	image   []byte
	choice  gesture.Gesture
	score   int

	// ready é fechado quando o jogador registra um gesto válido na rodada atual.
	// É recriado a cada nova rodada.
	ready chan struct{}
}

func newPlayerData() *playerData {
	return &playerData{ready: make(chan struct{})}
}

func (p *playerData) signalReady() {
	select {
	case <-p.ready:
	default:
		close(p.ready)
	}
}

// Game é uma partida entre exatamente dois jogadores.
type Game struct {
	ID       string
	player1  string
	player2  string
	maxScore int

	classifier Classifier

	mu      sync.Mutex
	players map[string]*playerData
	round   *round
	played  int

	winner    string
	abandoned bool
	// over é fechado quando a partida termina por abandono.
	over chan struct{}
}

// New cria uma partida. Os dois jogadores precisam ser distintos.
func New(id, player1, player2 string, maxScore int, classifier Classifier) (*Game, error) {
	if player1 == "" || player2 == "" || player1 == player2 {
		return nil, fmt.Errorf("a game needs two distinct players, got %q and %q", player1, player2)
	}
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return &Game{
		ID:         id,
		player1:    player1,
		player2:    player2,
		maxScore:   maxScore,
		classifier: classifier,
		players: map[string]*playerData{
			player1: newPlayerData(),
			player2: newPlayerData(),
		},
		round: newRound(1),
		over:  make(chan struct{}),
	}, nil
}

func (g *Game) String() string {
	return fmt.Sprintf("%s vs %s", g.player1, g.player2)
}

func (g *Game) Player1() string { return g.player1 }
func (g *Game) Player2() string { return g.player2 }
func (g *Game) MaxScore() int   { return g.maxScore }

// Opponent devolve o outro jogador da partida.
func (g *Game) Opponent(player string) (string, error) {
	switch player {
	case g.player1:
		return g.player2, nil
	case g.player2:
		return g.player1, nil
	}
	return "", fmt.Errorf("%w: %s", ErrPlayerNotInGame, player)
}

// RequestCountdown marca que o jogador clicou para iniciar a contagem.
// Retorna true quando o adversário já tinha clicado.
func (g *Game) RequestCountdown(player string) (bool, error) {
	opponent, err := g.Opponent(player)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.terminalErrLocked(); err != nil {
		return false, err
	}
	g.players[player].clicked = true
	return g.players[opponent].clicked, nil
}

// Abandon encerra a partida porque o jogador saiu. O adversário vence por W.O.
// e qualquer chamada suspensa em PlayRound é liberada com ErrOpponentLeft.
func (g *Game) Abandon(player string) (string, error) {
	opponent, err := g.Opponent(player)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.winner != "" {
		return opponent, ErrGameOver
	}
	g.abandoned = true
	g.winner = opponent
	close(g.over)
	return opponent, nil
}

func (g *Game) terminalErrLocked() error {
	switch {
	case g.abandoned:
		return ErrOpponentLeft
	case g.winner != "":
		return ErrGameOver
	}
	return nil
}
