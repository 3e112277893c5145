package tokenstore

import (
	"context"
	"sync"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// Memory — хранилище в памяти процесса (тесты, эфемерные запуски).
type Memory struct {
	mu   sync.RWMutex
	pair models.TokenPair
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	return nil
}

func (m *Memory) Load(_ context.Context) (models.TokenPair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair, !m.pair.Empty(), nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.pair = models.TokenPair{}
	m.mu.Unlock()

	return nil
}

func (m *Memory) Close() error { return nil }
