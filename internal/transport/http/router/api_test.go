package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-management-api/internal/core/auth"
	"user-management-api/internal/core/cache"
	"user-management-api/internal/core/config"
	"user-management-api/internal/core/database"
	"user-management-api/internal/domain"
	"user-management-api/internal/feature/user"
	"user-management-api/internal/mail"
	"user-management-api/internal/repo"
	"user-management-api/internal/transport/http/handler"
	"user-management-api/pkg/utils"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, m mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return s.err
}

type app struct {
	engine *gin.Engine
	db     *gorm.DB
	repo   *repo.UserRepo
	jwt    *auth.JWTer
	mail   *recordingSender
}

func newApp(t *testing.T) *app {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	users := repo.NewUserRepo(db, 2*time.Second)
	require.NoError(t, users.AutoMigrate(context.Background()))

	l := zap.NewNop()
	sender := &recordingSender{}
	notifier := mail.NewNotifier(sender, "admin@example.com", time.Second, l)
	svc := user.NewService(users, notifier)
	jwter := &auth.JWTer{Secret: []byte("test"), Issuer: "test", TTL: time.Hour}

	engine := NewAPIEngine(Deps{
		Logger:   l,
		Mode:     gin.TestMode,
		HTTP:     config.HTTP{BasePath: "/api", MaxBodyBytes: 1 << 20, RequestTimeout: 5},
		JWT:      jwter,
		Actors:   user.NewActors(users, cache.New("", "", 0), time.Minute),
		Registry: NewRegistry(handler.NewUserHandler(svc, l)),
	})
	return &app{engine: engine, db: db, repo: users, jwt: jwter, mail: sender}
}

func (a *app) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *app) seed(t *testing.T, id, name, email string, role domain.Role, minute int, active bool) {
	t.Helper()
	m := user.UserModel{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         string(role),
		CreatedAt:    time.Date(2024, 3, 1, 10, minute, 0, 0, time.UTC),
	}
	require.NoError(t, a.db.Create(&m).Error)
	if !active {
		require.NoError(t, a.db.Model(&m).Update("active", false).Error)
	}
}

func (a *app) token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := a.jwt.Issue(uid, "")
	require.NoError(t, err)
	return tok
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"msg":"Not Found","data":{}}`, w.Body.String())
}

func TestCORSExposesRequestID(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Expose-Headers")), "x-request-id")
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t)
	a.do(t, http.MethodGet, "/health", "", "")
	w := a.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCreateUser(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodPost, "/api/users", `{"name":"Ann","email":"ann@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	out := decode[map[string]any](t, w)
	assert.Len(t, out, 4)
	assert.Equal(t, "ann@example.com", out["email"])
	assert.Equal(t, "Ann", out["name"])
	assert.Len(t, out["id"], 32)
	_, err := time.Parse(domain.ISO8601, out["created_at"].(string))
	assert.NoError(t, err)
	assert.NotContains(t, w.Body.String(), "password")

	stored, err := a.repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.Equal(t, domain.RoleUser, stored.Role)
	assert.True(t, stored.Active)

	require.Len(t, a.mail.sent, 2)
	assert.Equal(t, "ann@example.com", a.mail.sent[0].To)
	assert.Equal(t, "Welcome to Our Service!", a.mail.sent[0].Subject)
	assert.Equal(t, "admin@example.com", a.mail.sent[1].To)
	assert.Equal(t, "New User Notification", a.mail.sent[1].Subject)
}

func TestCreateUserLongPassword(t *testing.T) {
	a := newApp(t)
	pw := strings.Repeat("p", 80)
	w := a.do(t, http.MethodPost, "/api/users", `{"name":"Ann","email":"ann@example.com","password":"`+pw+`"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, a.mail.sent, 2)

	stored, err := a.repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, utils.CheckPassword(pw, stored.PasswordHash))
}

func TestCreateUserMailFailureStillCreated(t *testing.T) {
	a := newApp(t)
	a.mail.err = domain.ErrDelivery
	w := a.do(t, http.MethodPost, "/api/users", `{"name":"Ann","email":"ann@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, a.mail.sent, 2)
}

func TestCreateUserValidation(t *testing.T) {
	a := newApp(t)
	a.seed(t, "u1", "Taken", "taken@example.com", domain.RoleUser, 0, true)

	w := a.do(t, http.MethodPost, "/api/users", `{"name":"Bob","email":"taken@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"email":["The email has already been taken."]}`, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/users", `{"email":"bad","password":"short"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{
		"name":["The name field is required."],
		"email":["The email field must be a valid email address."],
		"password":["The password field must be at least 8 characters."]
	}`, w.Body.String())

	// 空 body 按所有字段缺失处理
	w = a.do(t, http.MethodPost, "/api/users", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decode[map[string][]string](t, w)
	assert.Len(t, fields, 3)

	assert.Empty(t, a.mail.sent)
}

func TestCreateUserMalformedJSON(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodPost, "/api/users", `{"name":`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 400, body["code"])
}

func TestListUsers(t *testing.T) {
	a := newApp(t)
	for i := 0; i < 11; i++ {
		a.seed(t, fmt.Sprintf("id%02d", i), fmt.Sprintf("User %02d", i), fmt.Sprintf("u%02d@example.com", i), domain.RoleUser, i, true)
	}
	a.seed(t, "off", "Off", "off@example.com", domain.RoleUser, 30, false)
	require.NoError(t, a.db.Create(&user.OrderModel{ID: "o1", UserID: "id00"}).Error)
	require.NoError(t, a.db.Create(&user.OrderModel{ID: "o2", UserID: "id00"}).Error)

	w := a.do(t, http.MethodGet, "/api/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[user.Page](t, w)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Users, 10)
	assert.Equal(t, "id00", page.Users[0].ID)
	assert.Equal(t, int64(2), page.Users[0].OrdersCount)
	assert.Equal(t, int64(0), page.Users[1].OrdersCount)
	assert.Equal(t, "2024-03-01T10:00:00+00:00", page.Users[0].CreatedAt)
	for _, r := range page.Users {
		assert.False(t, r.CanEdit)
	}

	w = a.do(t, http.MethodGet, "/api/users?page=2", "", "")
	page = decode[user.Page](t, w)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "id10", page.Users[0].ID)

	w = a.do(t, http.MethodGet, "/api/users?page=abc", "", "")
	page = decode[user.Page](t, w)
	assert.Equal(t, 1, page.Page)

	w = a.do(t, http.MethodGet, "/api/users?page=9", "", "")
	assert.JSONEq(t, `{"page":9,"users":[]}`, w.Body.String())
}

func TestListUsersRowShape(t *testing.T) {
	a := newApp(t)
	a.seed(t, "u1", "Ann", "ann@example.com", domain.RoleUser, 0, true)

	w := a.do(t, http.MethodGet, "/api/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"page":1,"users":[{
		"id":"u1","name":"Ann","email":"ann@example.com","role":"user",
		"created_at":"2024-03-01T10:00:00+00:00","orders_count":0,"can_edit":false
	}]}`, w.Body.String())
}

func TestListUsersSearchAndSort(t *testing.T) {
	a := newApp(t)
	a.seed(t, "1", "Zoe", "zoe@corp.io", domain.RoleUser, 0, true)
	a.seed(t, "2", "Adam", "adam@corp.io", domain.RoleUser, 1, true)
	a.seed(t, "3", "Carl", "carl@home.net", domain.RoleUser, 2, true)
	a.seed(t, "4", "Corpse", "hidden@corp.io", domain.RoleUser, 3, false)

	w := a.do(t, http.MethodGet, "/api/users?search=CORP&sortBy=name", "", "")
	page := decode[user.Page](t, w)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "Adam", page.Users[0].Name)
	assert.Equal(t, "Zoe", page.Users[1].Name)

	w = a.do(t, http.MethodGet, "/api/users?sortBy=bogus", "", "")
	page = decode[user.Page](t, w)
	require.Len(t, page.Users, 3)
	assert.Equal(t, "1", page.Users[0].ID)
}

func TestListUsersCanEdit(t *testing.T) {
	a := newApp(t)
	a.seed(t, "adm", "Admin", "admin@corp.io", domain.RoleAdministrator, 0, true)
	a.seed(t, "mgr", "Manager", "mgr@corp.io", domain.RoleManager, 1, true)
	a.seed(t, "usr", "User", "usr@corp.io", domain.RoleUser, 2, true)

	canEdit := func(token string) map[string]bool {
		w := a.do(t, http.MethodGet, "/api/users", "", token)
		require.Equal(t, http.StatusOK, w.Code)
		out := map[string]bool{}
		for _, r := range decode[user.Page](t, w).Users {
			out[r.ID] = r.CanEdit
		}
		return out
	}

	assert.Equal(t, map[string]bool{"adm": true, "mgr": true, "usr": true}, canEdit(a.token(t, "adm")))
	assert.Equal(t, map[string]bool{"adm": false, "mgr": true, "usr": true}, canEdit(a.token(t, "mgr")))
	assert.Equal(t, map[string]bool{"adm": false, "mgr": false, "usr": true}, canEdit(a.token(t, "usr")))
	assert.Equal(t, map[string]bool{"adm": false, "mgr": false, "usr": false}, canEdit("not-a-token"))
}

func TestCurrentUser(t *testing.T) {
	a := newApp(t)
	a.seed(t, "mgr", "Manager", "mgr@corp.io", domain.RoleManager, 0, true)

	w := a.do(t, http.MethodGet, "/api/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":401,"msg":"unauthenticated","data":{}}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/user", "", a.token(t, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/api/user", "", a.token(t, "mgr"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id":"mgr","name":"Manager","email":"mgr@corp.io","role":"manager",
		"active":true,"created_at":"2024-03-01T10:00:00+00:00"
	}`, w.Body.String())
}

func TestRegistryOrder(t *testing.T) {
	var order []string
	r := NewRegistry(mountFunc{name: "late", prio: 200, order: &order}, mountFunc{name: "early", prio: 1, order: &order}, nil)
	r.MountAll(gin.New().Group("/"))
	assert.Equal(t, []string{"early", "late"}, order)
}

type mountFunc struct {
	name  string
	prio  int
	order *[]string
}

func (m mountFunc) MountAPI(*gin.RouterGroup) { *m.order = append(*m.order, m.name) }
func (m mountFunc) Priority() int             { return m.prio }
