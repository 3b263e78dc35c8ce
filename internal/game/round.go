package game

import (
	"context"
	"sync/atomic"

	"gesturejokenpo/internal/game/gesture"
)

// round guarda o resultado de uma rodada. Quem chegou primeiro espera com um
// ponteiro para esta struct, então ela continua válida depois do reset.
type round struct {
	number int

	// resolved vira true uma única vez, pela chamada que registrou o segundo gesto.
	resolved atomic.Bool
	winner   string
	choices  map[string]gesture.Gesture
}

func newRound(number int) *round {
	return &round{number: number}
}

// RoundResult é o que cada jogador recebe de PlayRound.
type RoundResult struct {
	Round    int
	Winner   string // "" significa empate
	Accepted bool
	// Resolver é true apenas para a chamada que calculou o resultado.
	Resolver bool
	Choices  map[string]gesture.Gesture
}

// PlayRound registra a jogada do jogador e espera pela jogada do adversário.
//
// Se o classificador não reconhecer um gesto jogável a jogada é recusada
// (Accepted=false) e nada muda. Caso contrário a chamada que registrar o
// segundo gesto calcula o vencedor, aplica o ponto e reinicia a rodada;
// a outra chamada acorda e lê o mesmo resultado.
func (g *Game) PlayRound(ctx context.Context, player string, image []byte) (RoundResult, error) {
	play, err := g.Submit(ctx, player, image)
	if err != nil {
		return RoundResult{}, err
	}
	return play.Wait(ctx)
}

// Play é uma jogada registrada na rodada corrente.
type Play struct {
	g        *Game
	round    *round
	accepted bool
	resolver bool

	opponentReady <-chan struct{}
}

// Submit classifica a imagem e registra o gesto sem esperar o adversário.
// Uma segunda imagem antes do fim da rodada sobrescreve a anterior.
func (g *Game) Submit(ctx context.Context, player string, image []byte) (*Play, error) {
	opponent, err := g.Opponent(player)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	err = g.terminalErrLocked()
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	prediction, err := g.classifier.Predict(ctx, image)
	if err != nil {
		return nil, err
	}
	if !prediction.IsPlayable() {
		return &Play{g: g}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.terminalErrLocked(); err != nil {
		return nil, err
	}
	r := g.round
	me := g.players[player]
	other := g.players[opponent]

	me.image = image
	me.choice = prediction
	me.signalReady()

	play := &Play{g: g, round: r, accepted: true, opponentReady: other.ready}
	if other.choice.IsPlayable() && r.resolved.CompareAndSwap(false, true) {
		g.resolveLocked(r)
		play.resolver = true
	}
	return play, nil
}

// Accepted informa se o gesto foi reconhecido e registrado.
func (p *Play) Accepted() bool { return p.accepted }

// Resolver é true apenas para a jogada que fechou a rodada.
func (p *Play) Resolver() bool { return p.resolver }

// SameRound informa se as duas jogadas pertencem à mesma rodada da mesma partida.
func (p *Play) SameRound(other *Play) bool {
	return other != nil && p.round != nil && p.round == other.round
}

// Status devolve o snapshot da partida da jogada.
func (p *Play) Status() Status { return p.g.Status() }

// Wait bloqueia até a rodada da jogada ser resolvida, a partida ser abandonada
// ou o contexto acabar. Pode ser chamado mais de uma vez.
func (p *Play) Wait(ctx context.Context) (RoundResult, error) {
	if !p.accepted {
		return RoundResult{Accepted: false}, nil
	}
	r := p.round

	if !p.resolver {
		select {
		case <-p.opponentReady:
		case <-p.g.over:
			if !r.resolved.Load() {
				return RoundResult{Accepted: true}, ErrOpponentLeft
			}
		case <-ctx.Done():
			if !r.resolved.Load() {
				return RoundResult{Accepted: true}, ctx.Err()
			}
		}
	}

	// O adversário fecha ready e resolve a rodada na mesma seção crítica,
	// então basta passar pelo lock para enxergar o resultado.
	p.g.mu.Lock()
	res := RoundResult{
		Round:    r.number,
		Winner:   r.winner,
		Accepted: true,
		Resolver: p.resolver,
		Choices:  r.choices,
	}
	p.g.mu.Unlock()
	return res, nil
}

// resolveLocked calcula o vencedor, aplica o ponto e prepara a próxima rodada.
// Deve ser chamado com g.mu travado e apenas por quem venceu o CompareAndSwap.
func (g *Game) resolveLocked(r *round) {
	p1 := g.players[g.player1]
	p2 := g.players[g.player2]

	r.choices = map[string]gesture.Gesture{
		g.player1: p1.choice,
		g.player2: p2.choice,
	}
	switch gesture.Compare(p1.choice, p2.choice) {
	case gesture.FirstWins:
		r.winner = g.player1
	case gesture.SecondWins:
		r.winner = g.player2
	}

	if r.winner != "" {
		w := g.players[r.winner]
		if w.score < g.maxScore {
			w.score++
		}
		if w.score == g.maxScore {
			g.winner = r.winner
		}
	}
	g.played = r.number

	for _, p := range g.players {
		p.clicked = false
		p.image = nil
		p.choice = gesture.None
		p.ready = make(chan struct{})
	}
	g.round = newRound(r.number + 1)
}
