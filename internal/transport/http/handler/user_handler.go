package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-management-api/internal/domain"
	"user-management-api/internal/feature/user"
	"user-management-api/internal/transport/http/ez"
	mdw "user-management-api/internal/transport/http/middleware"
)

// UserHandler /users 与 /user
type UserHandler struct {
	svc *user.Service
	l   *zap.Logger
}

func NewUserHandler(svc *user.Service, l *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, l: l}
}

func (h *UserHandler) Priority() int { return 10 }

func (h *UserHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.l)

	ez.RegisterAction(e, ez.Action[user.CreateInput, user.Created]{
		Method:  http.MethodPost,
		Path:    "/users",
		Binder:  ez.BindJSON,
		Status:  http.StatusCreated,
		Handler: h.create,
	})
	ez.RegisterAction(e, ez.Action[listQuery, user.Page]{
		Method:  http.MethodGet,
		Path:    "/users",
		Binder:  ez.BindQuery,
		Handler: h.list,
	})
	ez.RegisterAction(e, ez.Action[struct{}, user.Profile]{
		Method:  http.MethodGet,
		Path:    "/user",
		Binder:  ez.BindNone,
		Handler: h.me,
	}, mdw.RequireActor())
}

func (h *UserHandler) create(c *gin.Context, in *user.CreateInput) (user.Created, error) {
	return h.svc.Create(c.Request.Context(), *in)
}

// listQuery page 按字符串绑定，非法值交给 parsePage 兜底而不是 400
type listQuery struct {
	Search string `form:"search"`
	SortBy string `form:"sortBy"`
	Page   string `form:"page"`
}

func (h *UserHandler) list(c *gin.Context, q *listQuery) (user.Page, error) {
	return h.svc.List(c.Request.Context(), mdw.ActorFrom(c), user.ListParams{
		Search: q.Search,
		SortBy: q.SortBy,
		Page:   parsePage(q.Page),
	})
}

func (h *UserHandler) me(c *gin.Context, _ *struct{}) (user.Profile, error) {
	a := mdw.ActorFrom(c)
	if a == nil {
		return user.Profile{}, domain.ErrUnauthenticated
	}
	return user.ProfileOf(*a), nil
}

// parsePage 非数字或小于 1 一律按第 1 页
func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
