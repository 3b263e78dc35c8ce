package network

import "context"

// EventHandler é a interface que conecta a lógica da rede com a lógica do jogo.
// Todas as chamadas para um mesmo cliente vêm da mesma goroutine, em ordem.
type EventHandler interface {
	// OnConnect é chamado quando um novo cliente se conecta com sucesso.
	OnConnect(ctx context.Context, c *Client)

	// OnDisconnect é chamado uma única vez, depois da última OnMessage.
	OnDisconnect(c *Client)

	// OnMessage é chamado para cada mensagem recebida. ctx é cancelado
	// quando a conexão cai, então o handler pode bloquear com segurança.
	OnMessage(ctx context.Context, c *Client, msg Message)
}
