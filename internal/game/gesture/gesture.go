// Package gesture define os gestos do jokenpo e a tabela de regras entre eles.
package gesture

import (
	"fmt"
	"strings"
)

// Gesture é o rótulo devolvido pelo classificador para uma imagem.
type Gesture string

const (
	// None indica que nenhuma mão foi detectada na imagem.
	None     Gesture = ""
	Neutral  Gesture = "neutral"
	Rock     Gesture = "rock"
	Paper    Gesture = "paper"
	Scissors Gesture = "scissors"
)

// Playable são os únicos gestos que contam como jogada.
var Playable = []Gesture{Rock, Paper, Scissors}

// Parse converte um rótulo do classificador em Gesture.
// Aceita também "scissor", rótulo usado por alguns modelos.
func Parse(label string) (Gesture, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		return None, nil
	case "neutral":
		return Neutral, nil
	case "rock":
		return Rock, nil
	case "paper":
		return Paper, nil
	case "scissors", "scissor":
		return Scissors, nil
	}
	return None, fmt.Errorf("unknown gesture label %q", label)
}

// IsPlayable informa se o gesto pode ser usado numa rodada.
func (g Gesture) IsPlayable() bool {
	return g == Rock || g == Paper || g == Scissors
}

func (g Gesture) String() string {
	if g == None {
		return "none"
	}
	return string(g)
}
