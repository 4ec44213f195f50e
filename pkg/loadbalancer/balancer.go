package loadbalancer

import "sync"

// LoadBalancer rotates round-robin over a set of equivalent upstream base
// URLs (the read mirrors of the document tree).
type LoadBalancer struct {
	servers []string
	mu      sync.Mutex
	current int
}

func NewLoadBalancer(servers []string) *LoadBalancer {
	return &LoadBalancer{servers: servers}
}

// Next returns the next server in rotation, or "" when none are configured.
func (lb *LoadBalancer) Next() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.servers) == 0 {
		return ""
	}
	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}

// Len reports how many servers are in rotation.
func (lb *LoadBalancer) Len() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.servers)
}
