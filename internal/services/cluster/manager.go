package cluster

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	consul "github.com/hashicorp/consul/api"
)

// ErrNoConsul indica que nenhum agente Consul está acessível no momento.
var ErrNoConsul = errors.New("consul unavailable")

// ConsulManager mantém um cliente Consul funcional e troca de nó quando o atual cai.
type ConsulManager struct {
	addrs       string
	currentAddr string
	client      *consul.Client
	mu          sync.RWMutex
	onReconnect []func(*consul.Client)
	interval    time.Duration
}

// NewConsulManager conecta ao primeiro nó saudável e monitora a conexão até ctx acabar.
func NewConsulManager(ctx context.Context, addrs string) (*ConsulManager, error) {
	m := &ConsulManager{
		addrs:    addrs,
		interval: 10 * time.Second,
	}
	if err := m.reconnect(); err != nil {
		return nil, err
	}
	go m.monitor(ctx)
	return m, nil
}

// OnReconnect registra uma função chamada a cada reconexão bem-sucedida.
// O registro do serviço usa isso para se registrar de novo no nó novo.
func (m *ConsulManager) OnReconnect(callback func(*consul.Client)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = append(m.onReconnect, callback)
}

// Client devolve o cliente atual ou nil se não há nó disponível.
func (m *ConsulManager) Client() *consul.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Check é usado pelo health check do serviço.
func (m *ConsulManager) Check() error {
	if m.Client() == nil {
		return ErrNoConsul
	}
	return nil
}

func (m *ConsulManager) reconnect() error {
	client, addr, err := dialFirstHealthy(m.addrs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.client = nil
		return err
	}
	m.client = client
	m.currentAddr = addr
	log.Printf("[ConsulManager] Connected to Consul node %s", addr)

	for _, cb := range m.onReconnect {
		go cb(client)
	}
	return nil
}

func (m *ConsulManager) monitor(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.RLock()
		client, addr := m.client, m.currentAddr
		m.mu.RUnlock()
		if client != nil {
			if _, err := client.Status().Leader(); err == nil {
				continue
			}
			log.Printf("[ConsulManager] WARN: Node %s stopped answering, trying the others", addr)
		}
		if err := m.reconnect(); err != nil {
			log.Printf("[ConsulManager] ERROR: %v", err)
		}
	}
}
