package message

import (
	"log"

	"gesturejokenpo/internal/network"
)

// Sender é qualquer destino que aceita uma mensagem para um jogador.
// O network.Gateway satisfaz esta interface.
type Sender interface {
	Send(playerID string, msg network.Message) error
}

// SendTo entrega a mensagem e apenas registra a falha. Um jogador que caiu
// não deve derrubar o fluxo do adversário.
func SendTo(sender Sender, playerID string, msg network.Message) {
	if err := sender.Send(playerID, msg); err != nil {
		log.Printf("[Session] WARN: Could not deliver %s to %s: %v", msg.Action, playerID, err)
	}
}

// SendError envia apenas uma mensagem de erro para o jogador.
func SendError(sender Sender, playerID, code string, err error) {
	SendTo(sender, playerID, Error(code, err))
}
