package testfixtures

import (
	"fmt"
	"sync"

	"github.com/example/lab-resource-manager/internal/domain"
)

// UsageIDs hands out predictable reservation ids such as "usage-1".
type UsageIDs struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

func NewUsageIDs(prefix string) *UsageIDs {
	if prefix == "" {
		prefix = "usage"
	}
	return &UsageIDs{prefix: prefix}
}

func (g *UsageIDs) Next() domain.UsageID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return domain.UsageID(fmt.Sprintf("%s-%d", g.prefix, g.counter))
}

// Reset restarts the sequence at 1.
func (g *UsageIDs) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
