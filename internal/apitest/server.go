// apitest — in-process фейк удалённого API PricePilot для тестов.
//
// Сервер выпускает настоящие HS256 JWT (golang-jwt), хранит пользователей и
// товары в памяти и позволяет из теста управлять сценариями: протухание
// access-токенов, отзыв refresh-токенов, ротация, задержки и сбои профиля.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	secret = "apitest-secret"
	issuer = "pricepilot-apitest"

	typAccess  = "access"
	typRefresh = "refresh"
)

type claims struct {
	Type string `json:"typ"`
	Gen  int64  `json:"gen"`
	jwt.RegisteredClaims
}

// Server — фейк удалённого API поверх httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*account
	products map[int64]models.Product
	nextUser int64
	nextProd int64

	accessGen  atomic.Int64
	refreshGen atomic.Int64

	// Настройки сценариев.
	InlineUser    atomic.Bool  // логин возвращает user в теле
	RawProfile    atomic.Bool  // /users/me/ без {success,data}
	RotateRefresh atomic.Bool  // refresh возвращает новый refresh
	ProfileStatus atomic.Int32 // != 0 — /users/me/ отвечает этим статусом
	RefreshDelay  atomic.Int64 // задержка refresh, нс

	counts sync.Map // path -> *atomic.Int64
}

type account struct {
	user     models.User
	passHash []byte
}

// New поднимает сервер; закрывается через t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:    make(map[string]*account),
		products: make(map[int64]models.Product),
	}
	s.InlineUser.Store(true)

	r := chi.NewRouter()
	r.Use(s.count)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/login/", s.login)
		r.Post("/users/register/", s.register)
		r.Post("/users/token/refresh/", s.refresh)
		r.With(s.requireAccess).Get("/users/me/", s.me)

		r.Route("/products", func(r chi.Router) {
			r.Use(s.requireAccess)
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Get("/forecast/", s.canned(`{"success":true,"data":{"forecast":[10,12,15]}}`))
			r.Get("/advanced-forecast/", s.advancedForecast)
			r.Get("/optimize/", s.canned(`{"success":true,"data":[{"product_id":1,"optimized_price":"11.00"}]}`))
			r.Get("/elasticity-heatmap/", s.canned(`{"success":true,"data":{"categories":["Tools"],"matrix":[[-1.2]]}}`))
			r.Post("/ml-optimize/", s.echo)
			r.Post("/ab-testing/", s.echo)
			r.Get("/inventory-analysis/", s.canned(`{"success":true,"data":{"low_stock":[]}}`))
			r.Post("/batch-optimize/", s.echo)
			r.Get("/optimization-dashboard/", s.canned(`{"success":true,"data":{"products":0}}`))
			r.Get("/{id}/", s.getProduct)
			r.Put("/{id}/", s.updateProduct)
			r.Delete("/{id}/", s.deleteProduct)
		})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// BaseURL — корень API для clients.New.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// AddUser регистрирует пользователя напрямую.
func (s *Server) AddUser(username, password string, role models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUser++
	u := models.User{
		ID:       s.nextUser,
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	// Профиль на сервере шире локального User.
	profile, err := json.Marshal(map[string]any{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"role":        u.Role,
		"date_joined": "2024-01-01T00:00:00Z",
	})
	if err != nil {
		panic(fmt.Sprintf("apitest: marshal profile: %v", err))
	}
	u.Profile = profile

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hash password: %v", err))
	}
	s.users[username] = &account{user: u, passHash: hash}

	return u
}

// AddProduct кладёт товар и возвращает его с присвоенным id.
func (s *Server) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProd++
	p.ID = s.nextProd
	s.products[p.ID] = p

	return p
}

// ExpireAccess делает недействительными все выданные access-токены.
func (s *Server) ExpireAccess() { s.accessGen.Add(1) }

// RevokeRefresh делает недействительными все выданные refresh-токены.
func (s *Server) RevokeRefresh() { s.refreshGen.Add(1) }

// Count — сколько раз вызывался путь (например "/api/users/token/refresh/").
func (s *Server) Count(path string) int64 {
	v, ok := s.counts.Load(path)
	if !ok {
		return 0
	}

	return v.(*atomic.Int64).Load()
}

// RefreshCalls — число обращений к эндпойнту обновления.
func (s *Server) RefreshCalls() int64 { return s.Count("/api/users/token/refresh/") }

// IssuePair выпускает пару для пользователя в обход логина.
func (s *Server) IssuePair(username string) models.TokenPair {
	access, _ := s.sign(username, typAccess, s.accessGen.Load(), 5*time.Minute)
	refresh, _ := s.sign(username, typRefresh, s.refreshGen.Load(), 24*time.Hour)

	return models.TokenPair{Access: access, Refresh: refresh}
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := s.counts.LoadOrStore(r.URL.Path, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sign(username, typ string, gen int64, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Type: typ,
		Gen:  gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// parse проверяет подпись, тип и поколение токена; возвращает username.
func (s *Server) parse(tok, typ string) (string, bool) {
	var c claims
	_, err := jwt.ParseWithClaims(tok, &c,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil || c.Type != typ {
		return "", false
	}

	want := s.accessGen.Load()
	if typ == typRefresh {
		want = s.refreshGen.Load()
	}
	if c.Gen != want {
		return "", false
	}

	return c.Subject, true
}

type ctxUser struct{}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
			return
		}

		username, ok := s.parse(tok, typAccess)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		s.mu.Lock()
		acc, found := s.users[username]
		s.mu.Unlock()
		if !found {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "User not found"})
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), acc.user)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	acc, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passHash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}

	pair := s.IssuePair(req.Username)
	resp := models.LoginResponse{Success: true, Access: pair.Access, Refresh: pair.Refresh}
	if s.InlineUser.Load() {
		resp.User = acc.user.Profile
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < 6 {
		fields["password"] = []string{"Ensure this field has at least 6 characters."}
	}
	if !req.Role.Valid() {
		fields["role"] = []string{fmt.Sprintf("%q is not a valid choice.", req.Role)}
	}

	s.mu.Lock()
	_, taken := s.users[req.Username]
	s.mu.Unlock()
	if taken {
		fields["username"] = []string{"A user with that username already exists."}
	}

	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	u := s.AddUser(req.Username, req.Password, req.Role)
	u.Email = req.Email
	s.mu.Lock()
	s.users[req.Username].user.Email = req.Email
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if d := s.RefreshDelay.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}

	username, ok := s.parse(req.Refresh, typRefresh)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	access, _ := s.sign(username, typAccess, s.accessGen.Load(), 5*time.Minute)
	resp := models.RefreshResponse{Access: access}
	if s.RotateRefresh.Load() {
		resp.Refresh, _ = s.sign(username, typRefresh, s.refreshGen.Load(), 24*time.Hour)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if st := s.ProfileStatus.Load(); st != 0 {
		writeJSON(w, int(st), map[string]any{"detail": http.StatusText(int(st))})
		return
	}

	profile := userFrom(r.Context()).Profile
	if s.RawProfile.Load() {
		writeJSON(w, http.StatusOK, profile)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": profile})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.URL.Query().Get("name"))
	category := r.URL.Query().Get("category")

	s.mu.Lock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out, "count": len(out)})
}

func (s *Server) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return 0, false
	}

	return id, true
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	p, found := s.products[id]
	s.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	if !userFrom(r.Context()).HasRole(models.RoleSupplier, models.RoleAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "You do not have permission to perform this action."})
		return
	}

	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	p := s.AddProduct(fromInput(in))
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": p})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	_, found := s.products[id]
	p := fromInput(in)
	p.ID = id
	if found {
		s.products[id] = p
	}
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, found := s.products[id]
	delete(s.products, id)
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) advancedForecast(w http.ResponseWriter, r *http.Request) {
	pid := r.URL.Query().Get("product_id")
	if pid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "product_id is required"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"product_id": pid, "forecast": []int{5, 6, 7}}})
}

func (s *Server) canned(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// echo отвечает {"success":true,"data":<тело запроса>}.
func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	var in json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": in})
}

func fromInput(in models.ProductInput) models.Product {
	p := models.Product{
		Name:           in.Name,
		Category:       in.Category,
		CostPrice:      models.Decimal(in.CostPrice),
		SellingPrice:   models.Decimal(in.SellingPrice),
		Description:    in.Description,
		StockAvailable: in.StockAvailable,
		UnitsSold:      in.UnitsSold,
	}
	if in.CustomerRating != nil {
		v := models.Decimal(*in.CustomerRating)
		p.CustomerRating = &v
	}
	if in.SellingPrice > 0 {
		p.ProfitMargin = models.Decimal((in.SellingPrice - in.CostPrice) / in.SellingPrice * 100)
	}
	p.Revenue = models.Decimal(in.SellingPrice * float64(in.UnitsSold))

	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
