package cluster

import (
	"fmt"
	"log"
	"os"

	consul "github.com/hashicorp/consul/api"
)

// Registration descreve como esta instância aparece no Consul.
type Registration struct {
	ServiceName string
	ServicePort int
	HealthPort  int
	// Hostname anunciado para o check HTTP. Vazio usa HOSTNAME ou os.Hostname.
	Hostname string
	Tags     []string
}

// ServiceID é único por instância: nome do serviço mais hostname.
func (r Registration) ServiceID() string {
	return fmt.Sprintf("%s-%s", r.ServiceName, r.hostname())
}

func (r Registration) hostname() string {
	if r.Hostname != "" {
		return r.Hostname
	}
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	h, _ := os.Hostname()
	return h
}

func (r Registration) agentRegistration() *consul.AgentServiceRegistration {
	return &consul.AgentServiceRegistration{
		ID:   r.ServiceID(),
		Name: r.ServiceName,
		Port: r.ServicePort,
		Tags: r.Tags,
		// Sem Address: o agente usa o IP do contêiner que registrou.
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", r.hostname(), r.HealthPort),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

// Register registra a instância no agente Consul.
func Register(client *consul.Client, r Registration) error {
	if client == nil {
		return ErrNoConsul
	}
	if err := client.Agent().ServiceRegister(r.agentRegistration()); err != nil {
		return fmt.Errorf("failed to register %s in Consul: %w", r.ServiceID(), err)
	}
	log.Printf("[Consul] Service '%s' registered with ID: %s", r.ServiceName, r.ServiceID())
	return nil
}

// Deregister remove a instância, usado no desligamento.
func Deregister(client *consul.Client, r Registration) error {
	if client == nil {
		return ErrNoConsul
	}
	if err := client.Agent().ServiceDeregister(r.ServiceID()); err != nil {
		return fmt.Errorf("failed to deregister %s: %w", r.ServiceID(), err)
	}
	return nil
}
