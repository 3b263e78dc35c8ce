package game

import "gesturejokenpo/internal/game/gesture"

// PlayerStatus é a visão pública de um jogador.
type PlayerStatus struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Status é uma projeção somente leitura da partida, segura para serializar.
type Status struct {
	ID        string       `json:"id"`
	Player1   PlayerStatus `json:"player1"`
	Player2   PlayerStatus `json:"player2"`
	MaxScore  int          `json:"max_score"`
	Winner    string       `json:"winner,omitempty"`
	Abandoned bool         `json:"abandoned,omitempty"`
	Rounds    int          `json:"rounds"`
}

// Score devolve a pontuação de um jogador no snapshot.
func (s Status) Score(player string) int {
	switch player {
	case s.Player1.Name:
		return s.Player1.Score
	case s.Player2.Name:
		return s.Player2.Score
	}
	return 0
}

func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		ID:        g.ID,
		Player1:   PlayerStatus{Name: g.player1, Score: g.players[g.player1].score},
		Player2:   PlayerStatus{Name: g.player2, Score: g.players[g.player2].score},
		MaxScore:  g.maxScore,
		Winner:    g.winner,
		Abandoned: g.abandoned,
		Rounds:    g.played,
	}
}

// PlayerRound é o estado da rodada em andamento para um jogador.
type PlayerRound struct {
	Clicked  bool
	HasImage bool
	Choice   gesture.Gesture
	Ready    bool
}

// RoundState devolve o estado da rodada atual do jogador.
func (g *Game) RoundState(player string) (PlayerRound, error) {
	if _, err := g.Opponent(player); err != nil {
		return PlayerRound{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.players[player]
	ready := false
	select {
	case <-p.ready:
		ready = true
	default:
	}
	return PlayerRound{
		Clicked:  p.clicked,
		HasImage: p.image != nil,
		Choice:   p.choice,
		Ready:    ready,
	}, nil
}
