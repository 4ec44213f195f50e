package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRobin(t *testing.T) {
	lb := NewLoadBalancer([]string{"a", "b", "c"})
	assert.Equal(t, 3, lb.Len())

	got := []string{lb.Next(), lb.Next(), lb.Next(), lb.Next()}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestEmptyRotation(t *testing.T) {
	lb := NewLoadBalancer(nil)
	assert.Equal(t, "", lb.Next())
	assert.Equal(t, 0, lb.Len())
}
