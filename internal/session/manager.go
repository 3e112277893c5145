// session — жизненный цикл клиентской сессии PricePilot.
//
// Manager — единственный, кто меняет текущего пользователя сессии. Он
// выполняет вход, регистрацию, выход, тихое обновление access-токена и
// восстановление сессии при старте процесса, а также публикует снимки
// {state, user} подписчикам.
//
// Основные аспекты:
//   - состояние защищено sync.RWMutex; между независимыми операциями
//     выигрывает последняя запись;
//   - параллельные Refresh схлопываются в один удалённый вызов;
//   - Login и Logout начинают новое поколение сессии; результат refresh,
//     начатого в прошлом поколении, отбрасывается;
//   - ошибки хранилища токенов логируются и не прерывают операцию.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/metrics"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
	"github.com/Tuhin-SnapD/pricepilot/internal/tokenstore"
	"golang.org/x/sync/singleflight"
)

// Пути удалённого API.
const (
	pathLogin    = "/users/login/"
	pathRegister = "/users/register/"
	pathRefresh  = "/users/token/refresh/"
	pathProfile  = "/users/me/"
)

// clearBudget ограничивает очистку хранилища при выходе: она отвязана от
// отмены вызывающего.
const clearBudget = 5 * time.Second

// API — то, через что менеджер ходит в удалённый API (clients.Client).
type API interface {
	DoJSON(ctx context.Context, call *clients.Call, out any) error
}

// Manager управляет сессией.
type Manager struct {
	api     API
	store   tokenstore.Store
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state State
	user  *models.User

	// genMu держит вместе поколение, хранилище и состояние при смене сессии.
	genMu sync.Mutex
	gen   uint64

	refreshGroup singleflight.Group

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// Option — функциональная опция менеджера.
type Option func(*Manager)

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// New создаёт менеджер в состоянии Restoring.
func New(api API, store tokenstore.Store, opts ...Option) *Manager {
	m := &Manager{
		api:   api,
		store: store,
		state: Restoring,
		subs:  make(map[int]chan Snapshot),
	}
	for _, o := range opts {
		o(m)
	}
	m.metrics.SessionState(m.state.String(), allStates...)

	return m
}

// Snapshot — текущее опубликованное состояние.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{State: m.state, User: m.user.Clone()}
}

// State — текущее состояние.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// User — копия текущего пользователя (nil, если не аутентифицирован).
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.user.Clone()
}

// IsAuthenticated — пользователь присутствует.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.user != nil
}

// Logout сбрасывает сессию из любого состояния. Никогда не падает и идемпотентен.
func (m *Manager) Logout(ctx context.Context) {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	m.gen++
	m.logoutLocked(ctx)
}

// logoutIf сбрасывает сессию, только если поколение всё ещё gen.
func (m *Manager) logoutIf(ctx context.Context, gen uint64) bool {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	if m.gen != gen {
		log.From(ctx).Info("logout_skipped_session_changed")
		return false
	}
	m.gen++
	m.logoutLocked(ctx)

	return true
}

func (m *Manager) logoutLocked(ctx context.Context) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearBudget)
	defer cancel()

	if err := m.store.Clear(clearCtx); err != nil {
		log.From(ctx).Warn("token_store_clear_failed", slog.String("err", err.Error()))
	}

	m.set(Unauthenticated, nil)
	log.From(ctx).Info("logout")
}

// generation — текущее поколение сессии.
func (m *Manager) generation() uint64 {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	return m.gen
}

// begin начинает новое поколение: сохраняет пару и публикует Authenticated.
func (m *Manager) begin(ctx context.Context, pair models.TokenPair, user *models.User) {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	m.gen++
	m.savePair(ctx, pair)
	m.set(Authenticated, user)
}

// commitIf публикует состояние, только если поколение всё ещё gen.
func (m *Manager) commitIf(gen uint64, state State, user *models.User) bool {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	if m.gen != gen {
		return false
	}
	m.set(state, user)

	return true
}

// savePairIf сохраняет пару, только если поколение всё ещё gen.
func (m *Manager) savePairIf(ctx context.Context, gen uint64, pair models.TokenPair) bool {
	m.genMu.Lock()
	defer m.genMu.Unlock()

	if m.gen != gen {
		return false
	}
	m.savePair(ctx, pair)

	return true
}

// set меняет состояние и рассылает снимок подписчикам.
func (m *Manager) set(state State, user *models.User) {
	m.mu.Lock()
	m.state = state
	m.user = user.Clone()
	m.mu.Unlock()

	m.metrics.SessionState(state.String(), allStates...)
	m.publish()
}

// setState меняет только состояние, пользователь сохраняется.
func (m *Manager) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	m.metrics.SessionState(state.String(), allStates...)
	m.publish()
}

// loadPair читает пару; ошибка хранилища трактуется как «ничего не сохранено».
func (m *Manager) loadPair(ctx context.Context) models.TokenPair {
	pair, ok, err := m.store.Load(ctx)
	if err != nil {
		log.From(ctx).Warn("token_store_load_failed", slog.String("err", err.Error()))
		return models.TokenPair{}
	}
	if !ok {
		return models.TokenPair{}
	}

	return pair
}

func (m *Manager) savePair(ctx context.Context, pair models.TokenPair) {
	if err := m.store.Save(ctx, pair); err != nil {
		log.From(ctx).Warn("token_store_save_failed", slog.String("err", err.Error()))
	}
}
