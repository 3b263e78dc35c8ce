// Package classifier conversa com o serviço externo que reconhece o gesto da mão
// em uma imagem. O modelo em si vive fora deste processo; aqui ficam apenas os
// clientes HTTP e NATS que o consultam.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"gesturejokenpo/internal/game/gesture"
)

// ErrUnavailable indica que o classificador não pôde ser consultado.
var ErrUnavailable = errors.New("classifier unavailable")

// prediction é a resposta do serviço de classificação.
// Label nulo ou vazio significa que nenhuma mão foi encontrada.
type prediction struct {
	Label *string `json:"label"`
	Error string  `json:"error,omitempty"`
}

func decodePrediction(body []byte) (gesture.Gesture, error) {
	var p prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return gesture.None, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	if p.Error != "" {
		return gesture.None, fmt.Errorf("%w: %s", ErrUnavailable, p.Error)
	}
	if p.Label == nil {
		return gesture.None, nil
	}
	g, err := gesture.Parse(*p.Label)
	if err != nil {
		return gesture.None, fmt.Errorf("classifier returned %w", err)
	}
	return g, nil
}
