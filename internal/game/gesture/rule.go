package gesture

// Resultado da comparação entre dois gestos.
const (
	FirstWins  = 1
	SecondWins = -1
	Tie        = 0
)

// winConditions define a regra do Jokenpo.
// A chave vence o valor. Ex: "rock" vence "scissors".
var winConditions = map[Gesture]Gesture{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Beats informa se a vence b.
func Beats(a, b Gesture) bool {
	loser, ok := winConditions[a]
	return ok && loser == b
}

// Compare devolve FirstWins, SecondWins ou Tie.
// Gestos iguais (ou qualquer par fora da tabela) empatam.
func Compare(first, second Gesture) int {
	if Beats(first, second) {
		return FirstWins
	}
	if Beats(second, first) {
		return SecondWins
	}
	return Tie
}
