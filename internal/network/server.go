package network

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Options ajusta os buffers e o limite de mensagens de cada cliente.
type Options struct {
	SendBuffer  int
	InboxBuffer int
	// RateLimit é o número de mensagens por segundo aceitas de um cliente.
	// Zero ou negativo desliga o limite.
	RateLimit float64
	RateBurst int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.InboxBuffer <= 0 {
		o.InboxBuffer = 32
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 10
	}
	return o
}

// Server é a estrutura principal do nosso servidor de rede. Ele gerencia um Hub
// e o roteador HTTP onde ficam /ws e as rotas extras do serviço.
type Server struct {
	hub      *Hub
	router   *mux.Router
	upgrader websocket.Upgrader
	opts     Options
	http     *http.Server
}

// NewServer cria o servidor e já põe o Hub para rodar.
func NewServer(handler EventHandler, opts Options) *Server {
	s := &Server{
		hub:    NewHub(handler),
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			// Para desenvolvimento, qualquer origem é aceita.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		opts: opts.withDefaults(),
	}
	s.router.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)
	go s.hub.Run()
	return s
}

// Router expõe o roteador para o registro de rotas HTTP extras.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler devolve o http.Handler completo, útil com httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients devolve quantas conexões estão abertas.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

// wsHandler promove a requisição HTTP para WebSocket e registra o cliente.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WARN: Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	client := newClient(conn, s.hub, s.opts)
	if !s.hub.join(client) {
		conn.Close()
		return
	}

	go client.writeLoop()
	go client.readLoop()
}

// Listen inicia o servidor HTTP. Bloqueia até Shutdown.
func (s *Server) Listen(address string) error {
	s.http = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[Server] WebSocket listening on ws://%s/ws", address)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown para de aceitar conexões e fecha os clientes existentes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.hub.Stop()
	return err
}
