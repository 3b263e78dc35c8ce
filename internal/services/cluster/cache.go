package cluster

import (
	"context"
	"time"
)

type serviceCacheEntry struct {
	address    string
	expiration time.Time
}

// discoveryRequest é a "mensagem" que enviamos para o ator do cache.
type discoveryRequest struct {
	serviceName string
	reply       chan<- string
}

// LookupFunc resolve um nome de serviço para host:porta, ou "" se não há instância.
type LookupFunc func(serviceName string) string

// ServiceCacheActor guarda o endereço descoberto de cada serviço por um TTL.
// Todo o estado pertence à goroutine de run.
type ServiceCacheActor struct {
	entries map[string]serviceCacheEntry
	ttl     time.Duration
	lookup  LookupFunc
	now     func() time.Time

	requestCh  chan discoveryRequest
	invalidate chan string
	done       <-chan struct{}
}

// NewServiceCacheActor cria o cache usando o Consul atual do manager.
func NewServiceCacheActor(ctx context.Context, ttl time.Duration, manager *ConsulManager) *ServiceCacheActor {
	return newServiceCacheActor(ctx, ttl, func(serviceName string) string {
		return discoverAnyHealthy(manager.Client(), serviceName)
	})
}

func newServiceCacheActor(ctx context.Context, ttl time.Duration, lookup LookupFunc) *ServiceCacheActor {
	sc := &ServiceCacheActor{
		entries:    make(map[string]serviceCacheEntry),
		ttl:        ttl,
		lookup:     lookup,
		now:        time.Now,
		requestCh:  make(chan discoveryRequest),
		invalidate: make(chan string),
		done:       ctx.Done(),
	}
	go sc.run()
	return sc
}

func (sc *ServiceCacheActor) run() {
	for {
		select {
		case <-sc.done:
			return
		case name := <-sc.invalidate:
			delete(sc.entries, name)
		case req := <-sc.requestCh:
			entry, found := sc.entries[req.serviceName]
			if found && sc.now().Before(entry.expiration) {
				req.reply <- entry.address
				continue
			}

			address := sc.lookup(req.serviceName)
			if address != "" {
				sc.entries[req.serviceName] = serviceCacheEntry{
					address:    address,
					expiration: sc.now().Add(sc.ttl),
				}
			}
			req.reply <- address
		}
	}
}

// Discover é a API pública. Devolve "" se o serviço não tem instância saudável
// ou se o cache já foi encerrado.
func (sc *ServiceCacheActor) Discover(serviceName string) string {
	replyCh := make(chan string, 1)
	select {
	case sc.requestCh <- discoveryRequest{serviceName: serviceName, reply: replyCh}:
	case <-sc.done:
		return ""
	}
	return <-replyCh
}

// Invalidate descarta o endereço em cache, usado quando uma chamada a ele falha.
func (sc *ServiceCacheActor) Invalidate(serviceName string) {
	select {
	case sc.invalidate <- serviceName:
	case <-sc.done:
	}
}
