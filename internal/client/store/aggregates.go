package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/client/api"
	"github.com/atinyakov/crowdfund/internal/models"
)

// ContributionBackend reads the caller's contribution history.
type ContributionBackend interface {
	MyContributions(ctx context.Context) ([]models.DetailedContribution, error)
}

// Contributions is a read-only projection of the caller's contributions. The
// embedded project and reward copies are snapshots taken when the history was
// read; they do not follow later changes of the live entities.
type Contributions struct {
	backend ContributionBackend
	logger  *zap.Logger

	mu       sync.Mutex
	list     []models.DetailedContribution
	tick     uint64
	applied  uint64
	inflight int
	errMsg   string
}

// NewContributions creates an empty projection.
func NewContributions(backend ContributionBackend, logger *zap.Logger) *Contributions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contributions{backend: backend, logger: logger}
}

// Fetch replaces the history. On failure the previous history stays visible.
func (c *Contributions) Fetch(ctx context.Context) error {
	c.mu.Lock()
	c.tick++
	ticket := c.tick
	c.inflight++
	c.mu.Unlock()

	list, err := c.backend.MyContributions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if err != nil {
		c.errMsg = describe("failed to load contributions", err)
		c.logger.Warn("failed to load contributions", zap.Error(err))
		return fmt.Errorf("load contributions: %w", err)
	}
	if ticket < c.applied {
		return nil
	}
	c.applied = ticket
	c.list = list
	c.errMsg = ""
	return nil
}

// List returns a copy of the history.
func (c *Contributions) List() []models.DetailedContribution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.list)
}

// TotalSpent sums the reward prices of the history as snapshotted.
func (c *Contributions) TotalSpent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, dc := range c.list {
		total += dc.Reward.Price
	}
	return total
}

// Loading reports whether a fetch is in flight.
func (c *Contributions) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Err returns the message of the last failure, or an empty string.
func (c *Contributions) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// StatsBackend reads the platform aggregate.
type StatsBackend interface {
	Stats(ctx context.Context) (models.GlobalStats, error)
}

// Stats caches the platform aggregate. It is zero until the first successful fetch.
type Stats struct {
	backend StatsBackend
	logger  *zap.Logger

	mu       sync.Mutex
	current  models.GlobalStats
	tick     uint64
	applied  uint64
	inflight int
	errMsg   string
}

// NewStats creates a zero-valued aggregate.
func NewStats(backend StatsBackend, logger *zap.Logger) *Stats {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stats{backend: backend, logger: logger}
}

// Fetch replaces the aggregate. On failure the previous value is kept.
func (s *Stats) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.tick++
	ticket := s.tick
	s.inflight++
	s.mu.Unlock()

	st, err := s.backend.Stats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.errMsg = describe("failed to load statistics", err)
		s.logger.Warn("failed to load statistics", zap.Error(err))
		return fmt.Errorf("load statistics: %w", err)
	}
	if ticket < s.applied {
		return nil
	}
	s.applied = ticket
	s.current = st
	s.errMsg = ""
	return nil
}

// Current returns the last fetched aggregate.
func (s *Stats) Current() models.GlobalStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Loading reports whether a fetch is in flight.
func (s *Stats) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the last failure, or an empty string.
func (s *Stats) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// describe builds the user-facing message for a failed operation. Transport
// and server detail stays out of it.
func describe(op string, err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return op + ": " + apiErr.Error()
	}
	return op + ": " + err.Error()
}
