package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/apitest"
	"github.com/Tuhin-SnapD/pricepilot/internal/clients"
	"github.com/Tuhin-SnapD/pricepilot/internal/clients/interceptors"
	"github.com/Tuhin-SnapD/pricepilot/internal/mocks"
	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/Tuhin-SnapD/pricepilot/internal/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

// Тесты гоняют Manager против in-process фейка API (apitest) через настоящий
// clients.Client с интерсептором RetryAfterRefresh, как в main.

type env struct {
	srv    *apitest.Server
	store  *tokenstore.Memory
	client *clients.Client
	mgr    *Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()

	srv := apitest.New(t)
	store := tokenstore.NewMemory()

	c, err := clients.New(srv.BaseURL(), store)
	require.NoError(t, err)

	mgr := New(c, store)
	c.Use(interceptors.RetryAfterRefresh(mgr, nil))

	return &env{srv: srv, store: store, client: c, mgr: mgr}
}

func (e *env) pair(t *testing.T) (models.TokenPair, bool) {
	t.Helper()
	p, ok, err := e.store.Load(context.Background())
	require.NoError(t, err)
	return p, ok
}

// products — запрос к эндпойнту, требующему профиль/токен.
func (e *env) products(ctx context.Context) error {
	return e.client.DoJSON(ctx, &clients.Call{Method: http.MethodGet, Path: "/products/"}, nil)
}

// --- Login ---

func TestLogin_OK_InlineUser(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)

	u, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, models.RoleSupplier, u.Role)
	require.Contains(t, string(u.Profile), `"date_joined"`)

	p, ok := e.pair(t)
	require.True(t, ok)
	require.NotEmpty(t, p.Access)
	require.NotEmpty(t, p.Refresh)

	snap := e.mgr.Snapshot()
	require.Equal(t, Authenticated, snap.State)
	require.True(t, snap.IsAuthenticated())
	require.Equal(t, int64(0), e.srv.Count("/api/users/me/"))
}

func TestLogin_OK_ProfileFetched(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.InlineUser.Store(false)
	e.srv.AddUser("bob", "secret1", models.RoleAdmin)

	u, err := e.mgr.Login(context.Background(), "bob", "secret1")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)
	require.Equal(t, "bob@example.com", u.Email)
	require.Contains(t, string(u.Profile), `"date_joined"`)
	require.Equal(t, int64(1), e.srv.Count("/api/users/me/"))
}

func TestLogin_DegradedProfile(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.InlineUser.Store(false)
	e.srv.ProfileStatus.Store(http.StatusInternalServerError)
	e.srv.AddUser("carol", "secret1", models.RoleAdmin)

	u, err := e.mgr.Login(context.Background(), "carol", "secret1")
	require.NoError(t, err)
	require.Equal(t, &models.User{Username: "carol", Role: models.DefaultRole}, u)
	require.Equal(t, Authenticated, e.mgr.State())
}

func TestLogin_InvalidCredentials_StoreUntouched(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)

	before := models.TokenPair{Access: "old-a", Refresh: "old-r"}
	require.NoError(t, e.store.Save(context.Background(), before))
	e.mgr.set(Unauthenticated, nil)

	_, err := e.mgr.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAuthentication)

	var ae *AuthenticationError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "No active account found with the given credentials", ae.Message)

	p, ok := e.pair(t)
	require.True(t, ok)
	require.Equal(t, before, p)
	require.Equal(t, Unauthenticated, e.mgr.State())
	require.Nil(t, e.mgr.User())
	require.Equal(t, int64(0), e.srv.RefreshCalls())
}

func TestLogin_NetworkError(t *testing.T) {
	t.Parallel()
	store := tokenstore.NewMemory()
	c, err := clients.New("http://127.0.0.1:1", store)
	require.NoError(t, err)
	mgr := New(c, store)

	_, err = mgr.Login(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, ErrAuthentication)
	require.ErrorIs(t, err, clients.ErrNetwork)
	require.Equal(t, Restoring, mgr.State())
}

type apiFunc func(ctx context.Context, call *clients.Call, out any) error

func (f apiFunc) DoJSON(ctx context.Context, call *clients.Call, out any) error { return f(ctx, call, out) }

func TestLogin_MissingTokens(t *testing.T) {
	t.Parallel()

	api := apiFunc(func(_ context.Context, _ *clients.Call, out any) error {
		out.(*models.LoginResponse).Access = "only-access"
		return nil
	})
	store := tokenstore.NewMemory()
	mgr := New(api, store)

	_, err := mgr.Login(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, ErrAuthentication)

	_, ok, _ := store.Load(context.Background())
	require.False(t, ok)
	require.False(t, mgr.IsAuthenticated())
}

// Ошибки хранилища логируются и не ломают вход.
func TestLogin_StoreSaveErrorIgnored(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	srv.AddUser("alice", "secret1", models.RoleBuyer)

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	store.EXPECT().Load(gomock.Any()).Return(models.TokenPair{}, false, nil).AnyTimes()

	c, err := clients.New(srv.BaseURL(), store)
	require.NoError(t, err)
	mgr := New(c, store)

	u, err := mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, Authenticated, mgr.State())
}

// --- Logout ---

func TestLogout_AnyStateIdempotent(t *testing.T) {
	t.Parallel()

	for _, st := range []State{Unauthenticated, Restoring, Authenticated, RefreshingSilently} {
		e := newEnv(t)
		require.NoError(t, e.store.Save(context.Background(), models.TokenPair{Access: "a", Refresh: "r"}))
		e.mgr.set(st, &models.User{Username: "x", Role: models.RoleBuyer})

		e.mgr.Logout(context.Background())
		e.mgr.Logout(context.Background())

		require.Equal(t, Unauthenticated, e.mgr.State(), st.String())
		require.Nil(t, e.mgr.User())
		_, ok := e.pair(t)
		require.False(t, ok)
	}
}

func TestLogout_StoreErrorIgnored(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Clear(gomock.Any()).Return(errors.New("redis down"))

	mgr := New(apiFunc(func(context.Context, *clients.Call, any) error { return nil }), store)
	mgr.set(Authenticated, &models.User{Username: "x"})

	mgr.Logout(context.Background())
	require.Equal(t, Unauthenticated, mgr.State())
}

// Отменённый ctx вызывающего не мешает очистить хранилище.
func TestLogout_CanceledContext_ClearsRedis(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	store, err := tokenstore.NewRedis(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Save(context.Background(), models.TokenPair{Access: "a", Refresh: "r"}))

	mgr := New(apiFunc(func(context.Context, *clients.Call, any) error { return nil }), store)
	mgr.set(Authenticated, &models.User{Username: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mgr.Logout(ctx)

	require.Equal(t, Unauthenticated, mgr.State())
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists(tokenstore.DefaultRedisPrefix+tokenstore.KeyAccess))
}

// --- Refresh ---

func TestRefresh_NoRefreshToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.mgr.set(Authenticated, &models.User{Username: "x"})
	require.NoError(t, e.store.Save(context.Background(), models.TokenPair{Access: "a"}))

	_, err := e.mgr.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	require.Equal(t, int64(0), e.srv.RefreshCalls())

	// Сессия не сбрасывается.
	require.Equal(t, Authenticated, e.mgr.State())
	_, ok := e.pair(t)
	require.True(t, ok)
}

func TestRefresh_OK_KeepsRefreshUnlessRotated(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	before, _ := e.pair(t)

	access, err := e.mgr.Refresh(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, before.Access, access)

	after, _ := e.pair(t)
	require.Equal(t, access, after.Access)
	require.Equal(t, before.Refresh, after.Refresh)

	e.srv.RotateRefresh.Store(true)
	_, err = e.mgr.Refresh(context.Background())
	require.NoError(t, err)

	rotated, _ := e.pair(t)
	require.NotEqual(t, before.Refresh, rotated.Refresh)
	require.Equal(t, Authenticated, e.mgr.State())
}

func TestRefresh_Failure_LogsOut(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.srv.RevokeRefresh()

	_, err = e.mgr.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)

	var rf *RefreshFailedError
	require.True(t, errors.As(err, &rf))
	se, ok := clients.AsStatus(rf.Err)
	require.True(t, ok)
	require.True(t, se.Unauthorized())

	require.Equal(t, Unauthenticated, e.mgr.State())
	_, ok = e.pair(t)
	require.False(t, ok)
}

func TestRefresh_WaiterHonoursOwnContext(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	before, _ := e.pair(t)
	e.srv.RefreshDelay.Store(int64(200 * time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = e.mgr.Refresh(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Общий вызов всё равно завершается и сохраняет новый access.
	require.Eventually(t, func() bool {
		p, _ := e.pair(t)
		return p.Access != before.Access
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int64(1), e.srv.RefreshCalls())
}

// Logout во время обновления: пришедшая пара не сохраняется, повтор не делается.
func TestRefresh_LogoutDuringRefresh_Discarded(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.srv.ExpireAccess()
	e.srv.RefreshDelay.Store(int64(200 * time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- e.products(context.Background()) }()

	require.Eventually(t, func() bool { return e.srv.RefreshCalls() == 1 }, 2*time.Second, 5*time.Millisecond)
	e.mgr.Logout(context.Background())

	err = <-done
	se, ok := clients.AsStatus(err)
	require.True(t, ok, "err: %v", err)
	require.True(t, se.Unauthorized())

	require.Equal(t, Unauthenticated, e.mgr.State())
	_, ok = e.pair(t)
	require.False(t, ok)
	require.Equal(t, int64(1), e.srv.Count("/api/products/"))
}

// Новый вход во время обновления: пара из старой сессии не затирает новую.
func TestRefresh_LoginDuringRefresh_KeepsNewPair(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)
	e.srv.AddUser("bob", "secret2", models.RoleAdmin)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	e.srv.RefreshDelay.Store(int64(200 * time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := e.mgr.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return e.srv.RefreshCalls() == 1 }, 2*time.Second, 5*time.Millisecond)
	_, err = e.mgr.Login(context.Background(), "bob", "secret2")
	require.NoError(t, err)
	bob, _ := e.pair(t)

	err = <-done
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, errSessionChanged)

	p, ok := e.pair(t)
	require.True(t, ok)
	require.Equal(t, bob, p)
	require.Equal(t, "bob", e.mgr.User().Username)
	require.Equal(t, Authenticated, e.mgr.State())
}

// Restore упёрся в дедлайн посреди обновления: общий вызов, завершившись
// позже, не возвращает токены в хранилище.
func TestRestore_DeadlineDuringRefresh_StoreStaysEmpty(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	require.NoError(t, e.store.Save(context.Background(), e.srv.IssuePair("alice")))
	e.srv.ExpireAccess()
	e.srv.RefreshDelay.Store(int64(200 * time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	snap := e.mgr.Restore(ctx)
	require.Equal(t, Unauthenticated, snap.State)

	// Присоединяемся к общему вызову (или видим, что он уже отработал).
	_, err := e.mgr.Refresh(context.Background())
	require.Error(t, err)

	_, ok := e.pair(t)
	require.False(t, ok)
	require.Equal(t, Unauthenticated, e.mgr.State())
}

// --- Retry-after-refresh через клиент ---

func TestRetryAfterRefresh_CallerSeesOnlyFinalOutcome(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.srv.ExpireAccess()

	require.NoError(t, e.products(context.Background()))
	require.Equal(t, int64(1), e.srv.RefreshCalls())
	require.Equal(t, int64(2), e.srv.Count("/api/products/"))
	require.Equal(t, Authenticated, e.mgr.State())
}

func TestRetryAfterRefresh_RefreshFails_Unauthenticated(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.srv.ExpireAccess()
	e.srv.RevokeRefresh()

	err = e.products(context.Background())
	se, ok := clients.AsStatus(err)
	require.True(t, ok)
	require.True(t, se.Unauthorized())

	require.Equal(t, Unauthenticated, e.mgr.State())
	_, ok = e.pair(t)
	require.False(t, ok)

	// Следующий запрос уходит без токена и не пытается обновиться.
	err = e.products(context.Background())
	require.Error(t, err)
	require.Equal(t, int64(1), e.srv.RefreshCalls())
}

func TestRetryAfterRefresh_ConcurrentUnauthorizedCoalesced(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleSupplier)
	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.srv.ExpireAccess()
	e.srv.RefreshDelay.Store(int64(100 * time.Millisecond))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.products(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), e.srv.RefreshCalls())
}

// --- Restore ---

func TestRestore_NoStoredToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	require.Equal(t, Restoring, e.mgr.State())

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Unauthenticated, snap.State)
	require.False(t, snap.IsAuthenticated())
	require.Equal(t, int64(0), e.srv.Count("/api/users/me/"))
}

func TestRestore_ValidToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleAdmin)
	require.NoError(t, e.store.Save(context.Background(), e.srv.IssuePair("alice")))

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Authenticated, snap.State)
	require.Equal(t, "alice", snap.User.Username)
	require.Equal(t, models.RoleAdmin, snap.User.Role)
}

func TestRestore_RawProfileShape(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.RawProfile.Store(true)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	require.NoError(t, e.store.Save(context.Background(), e.srv.IssuePair("alice")))

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Authenticated, snap.State)
	require.Equal(t, "alice", snap.User.Username)
}

func TestRestore_ExpiredAccess_ValidRefresh(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	stale := e.srv.IssuePair("alice")
	require.NoError(t, e.store.Save(context.Background(), stale))
	e.srv.ExpireAccess()

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Authenticated, snap.State)
	require.Equal(t, "alice", snap.User.Username)

	p, ok := e.pair(t)
	require.True(t, ok)
	require.NotEqual(t, stale.Access, p.Access)
	require.Equal(t, stale.Refresh, p.Refresh)
	require.Equal(t, int64(1), e.srv.RefreshCalls())
	require.Equal(t, int64(2), e.srv.Count("/api/users/me/"))
}

func TestRestore_ExpiredAccess_InvalidRefresh(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	require.NoError(t, e.store.Save(context.Background(), e.srv.IssuePair("alice")))
	e.srv.ExpireAccess()
	e.srv.RevokeRefresh()

	var snap Snapshot
	require.NotPanics(t, func() { snap = e.mgr.Restore(context.Background()) })
	require.Equal(t, Unauthenticated, snap.State)
	require.Nil(t, snap.User)

	_, ok := e.pair(t)
	require.False(t, ok)
}

func TestRestore_ExpiredAccess_NoRefreshToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	p := e.srv.IssuePair("alice")
	require.NoError(t, e.store.Save(context.Background(), models.TokenPair{Access: p.Access}))
	e.srv.ExpireAccess()

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Unauthenticated, snap.State)
	_, ok := e.pair(t)
	require.False(t, ok)
	require.Equal(t, int64(0), e.srv.RefreshCalls())
}

func TestRestore_ProfileServerError_LogsOut(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)
	require.NoError(t, e.store.Save(context.Background(), e.srv.IssuePair("alice")))
	e.srv.ProfileStatus.Store(http.StatusBadGateway)

	snap := e.mgr.Restore(context.Background())
	require.Equal(t, Unauthenticated, snap.State)
	_, ok := e.pair(t)
	require.False(t, ok)
	require.Equal(t, int64(0), e.srv.RefreshCalls())
}

// --- Register ---

func TestRegister_ShortPassword_FieldScoped(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	err := e.mgr.Register(context.Background(), "alice", "a@example.com", "short", models.RoleBuyer)
	require.ErrorIs(t, err, ErrRegistration)

	var re *RegistrationError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "Ensure this field has at least 6 characters.", re.Field("password"))
	require.Equal(t, "Password: Ensure this field has at least 6 characters.", re.Message)

	require.Nil(t, e.mgr.User())
	require.Equal(t, Restoring, e.mgr.State())
}

func TestRegister_OK_DoesNotTouchSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.mgr.set(Unauthenticated, nil)

	require.NoError(t, e.mgr.Register(context.Background(), "dave", "d@example.com", "secret1", models.RoleSupplier))
	require.Nil(t, e.mgr.User())
	_, ok := e.pair(t)
	require.False(t, ok)

	u, err := e.mgr.Login(context.Background(), "dave", "secret1")
	require.NoError(t, err)
	require.Equal(t, models.RoleSupplier, u.Role)
}

func TestRegister_UsernameTaken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)

	err := e.mgr.Register(context.Background(), "alice", "a@example.com", "secret1", models.RoleBuyer)

	var re *RegistrationError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "Username: A user with that username already exists.", re.Message)
}

func TestRegister_NetworkError(t *testing.T) {
	t.Parallel()
	store := tokenstore.NewMemory()
	c, err := clients.New("http://127.0.0.1:1", store)
	require.NoError(t, err)

	err = New(c, store).Register(context.Background(), "a", "a@example.com", "secret1", models.RoleBuyer)
	require.ErrorIs(t, err, ErrRegistration)
	require.ErrorIs(t, err, clients.ErrNetwork)

	var re *RegistrationError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "network error", re.Message)
}

func TestRegistrationMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Email: bad, worse", registrationMessage(map[string][]string{"email": {"bad", "worse"}}, "x"))
	require.Equal(t, "Nope", registrationMessage(map[string][]string{"non_field_errors": {"Nope"}}, "x"))
	require.Equal(t, "phone: bad", registrationMessage(map[string][]string{"phone": {"bad"}}, "x"))
	require.Equal(t, "fallback", registrationMessage(nil, "fallback"))
}

// --- Subscribe ---

func TestSubscribe_PublishesLatestSnapshot(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.srv.AddUser("alice", "secret1", models.RoleBuyer)

	ch, unsubscribe := e.mgr.Subscribe()

	first := <-ch
	require.Equal(t, Restoring, first.State)

	_, err := e.mgr.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	e.mgr.Logout(context.Background())

	// Без чтения между событиями в канале остаётся только последний снимок.
	last := <-ch
	require.Equal(t, Unauthenticated, last.State)
	require.False(t, last.IsAuthenticated())

	select {
	case s := <-ch:
		t.Fatalf("unexpected extra snapshot: %+v", s)
	default:
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	require.False(t, open)
}

func TestSnapshot_IsCopy(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.mgr.set(Authenticated, &models.User{Username: "x", Role: models.RoleBuyer})

	s := e.mgr.Snapshot()
	s.User.Role = models.RoleAdmin

	require.Equal(t, models.RoleBuyer, e.mgr.User().Role)
}

func TestDecodeProfile(t *testing.T) {
	t.Parallel()

	u, err := decodeProfile([]byte(`{"success":true,"data":{"id":3,"username":"z","role":"admin"}}`))
	require.NoError(t, err)
	require.Equal(t, int64(3), u.ID)

	require.JSONEq(t, `{"id":3,"username":"z","role":"admin"}`, string(u.Profile))

	u, err = decodeProfile([]byte(`{"id":4,"username":"y","role":"buyer","extra":1}`))
	require.NoError(t, err)
	require.Equal(t, "y", u.Username)
	require.JSONEq(t, `{"id":4,"username":"y","role":"buyer","extra":1}`, string(u.Profile))

	_, err = decodeProfile(nil)
	require.ErrorIs(t, err, errMalformedProfile)

	_, err = decodeProfile([]byte(`{"success":false}`))
	require.ErrorIs(t, err, errMalformedProfile)

	_, err = decodeProfile([]byte(`[]`))
	require.ErrorIs(t, err, errMalformedProfile)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "refreshing_silently", RefreshingSilently.String())
	b, err := Authenticated.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "authenticated", string(b))
	require.Equal(t, "unknown", State(42).String())
}
