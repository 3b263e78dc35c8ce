package cluster

import (
	"fmt"
	"log"

	consul "github.com/hashicorp/consul/api"
	"github.com/samber/lo"
)

// discoverAnyHealthy devolve host:porta de uma instância saudável qualquer, ou "".
func discoverAnyHealthy(client *consul.Client, serviceName string) string {
	if client == nil {
		return ""
	}
	entries, _, err := client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		log.Printf("[Discovery] WARN: Failed to query '%s': %v", serviceName, err)
		return ""
	}
	addr := pickInstance(entries)
	if addr == "" {
		log.Printf("[Discovery] WARN: No healthy instance of '%s'", serviceName)
	}
	return addr
}

// pickInstance sorteia uma das entradas. Endereço vazio do serviço cai no do nó.
func pickInstance(entries []*consul.ServiceEntry) string {
	entries = lo.Filter(entries, func(e *consul.ServiceEntry, _ int) bool {
		return e != nil && e.Service != nil
	})
	if len(entries) == 0 {
		return ""
	}
	e := lo.Sample(entries)
	addr := e.Service.Address
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	return fmt.Sprintf("%s:%d", addr, e.Service.Port)
}
