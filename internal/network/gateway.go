package network

import (
	"fmt"
	"sync"
)

// Outbox é qualquer destino que aceita mensagens sem bloquear.
// *Client é a implementação usada em produção.
type Outbox interface {
	Deliver(msg Message) error
}

// Gateway liga a identidade do jogador ao canal de saída da conexão dele.
type Gateway struct {
	mu       sync.RWMutex
	outboxes map[string]Outbox
}

func NewGateway() *Gateway {
	return &Gateway{outboxes: make(map[string]Outbox)}
}

// Register associa o jogador a um destino, substituindo o anterior.
func (g *Gateway) Register(id string, out Outbox) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outboxes[id] = out
}

// Unregister remove o jogador. Mensagens posteriores falham com ErrChannelClosed.
func (g *Gateway) Unregister(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.outboxes, id)
}

// Send entrega a mensagem ao jogador sem bloquear.
func (g *Gateway) Send(id string, msg Message) error {
	g.mu.RLock()
	out, ok := g.outboxes[id]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelClosed, id)
	}
	if err := out.Deliver(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Action, id, err)
	}
	return nil
}

// Connected informa se o jogador tem um destino registrado.
func (g *Gateway) Connected(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.outboxes[id]
	return ok
}

func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.outboxes)
}
