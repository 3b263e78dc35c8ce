package network

import (
	"log"
	"sync"
	"sync/atomic"
)

// Hub mantém o conjunto de clientes ativos.
// O mapa de clientes é acessado SOMENTE pela goroutine de Run.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	count atomic.Int64

	// O handler da lógica do jogo que processará os eventos.
	handler EventHandler
}

// NewHub cria, inicializa e retorna um novo Hub.
func NewHub(handler EventHandler) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		handler:    handler,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			go client.dispatchLoop(h.handler)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.count.Add(-1)
				// Fecha 'send' (para o writeLoop) e cancela o contexto (para o dispatchLoop).
				client.close()
			}

		case <-h.quit:
			log.Printf("[Hub] Shutting down, closing %d clients", len(h.clients))
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.count.Store(0)
			return
		}
	}
}

// join registra o cliente. Retorna false se o Hub já parou.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.close()
	}
}

// Stop fecha todos os clientes e espera Run terminar.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
}

// Clients devolve quantos clientes estão registrados.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}
