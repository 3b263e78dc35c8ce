package network

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Tempo para aguardar por uma escrita na conexão.
	writeWait = 10 * time.Second

	// Tempo máximo para aguardar por uma resposta de pong do cliente.
	pongWait = 60 * time.Second

	// Frequência com que enviamos pings para o cliente. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrChannelClosed  = errors.New("client channel closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client é a representação de um jogador conectado do ponto de vista do servidor.
//
// Cada cliente roda três goroutines: readLoop lê frames da conexão, writeLoop
// escreve o que chega em send e dispatchLoop entrega as mensagens ao
// EventHandler, uma de cada vez. O handler pode bloquear (esperando pareamento
// ou o adversário) sem travar o Hub nem a leitura.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// Mensagens de saída. Só é fechado por close, sob mu.
	send   chan Message
	mu     sync.Mutex
	closed bool

	// Mensagens de entrada já decodificadas, à espera do dispatchLoop.
	inbox chan Message

	limiter *rate.Limiter

	// ctx é cancelado quando o cliente é desregistrado.
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newClient(conn *websocket.Conn, hub *Hub, opts Options) *Client {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	return &Client{
		conn:    conn,
		hub:     hub,
		send:    make(chan Message, opts.SendBuffer),
		inbox:   make(chan Message, opts.InboxBuffer),
		limiter: rate.NewLimiter(limit, opts.RateBurst),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RemoteAddr devolve o endereço do jogador, útil para logs.
func (c *Client) RemoteAddr() string {
	if c.conn == nil {
		return "unknown"
	}
	return c.conn.RemoteAddr().String()
}

// Context é cancelado quando a conexão cai.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Deliver coloca a mensagem na fila de saída sem bloquear.
func (c *Client) Deliver(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close cancela o contexto e fecha send. Pode ser chamado mais de uma vez.
func (c *Client) close() {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Client) readLoop() {
	// Garante que a limpeza ocorrerá quando o loop terminar.
	defer func() {
		close(c.inbox)
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] WARN: Unexpected close from %s: %v", c.RemoteAddr(), err)
			}
			return
		}

		// Erros daqui vão direto para send e podem chegar antes das respostas
		// de mensagens anteriores que ainda estão no inbox.
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Deliver(NewErrorMessage("invalid_payload", "message is not a valid JSON envelope"))
			continue
		}

		if !c.limiter.Allow() {
			c.Deliver(NewErrorMessage("rate_limited", "too many messages, slow down"))
			continue
		}

		select {
		case c.inbox <- msg:
		default:
			c.Deliver(NewErrorMessage("rate_limited", "server busy with previous messages"))
		}
	}
}

// writeLoop bombeia mensagens do canal 'send' do cliente para a conexão WebSocket.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// O canal 'send' foi fechado pelo Hub: o cliente foi desregistrado.
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("[Client] WARN: Write to %s failed: %v", c.RemoteAddr(), err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatchLoop é o único lugar que chama o handler para este cliente,
// então OnConnect, OnMessage e OnDisconnect nunca se sobrepõem.
func (c *Client) dispatchLoop(handler EventHandler) {
	defer handler.OnDisconnect(c)
	handler.OnConnect(c.ctx, c)

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.inbox:
			if !ok {
				return
			}
			handler.OnMessage(c.ctx, c, msg)
		}
	}
}
