package cluster

import (
	"fmt"
	"log"
	"strings"

	consul "github.com/hashicorp/consul/api"
)

// dialFirstHealthy percorre a lista de endereços (separados por vírgula) e
// devolve o primeiro agente Consul que enxerga um líder.
func dialFirstHealthy(addrs string) (*consul.Client, string, error) {
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			log.Printf("[Consul] WARN: Invalid client config for %s: %v", node, err)
			continue
		}
		if _, err := client.Status().Leader(); err != nil {
			log.Printf("[Consul] WARN: Node %s has no leader: %v", node, err)
			continue
		}
		return client, node, nil
	}
	return nil, "", fmt.Errorf("no Consul node available in %q", addrs)
}
