package user

import (
	"context"
	"fmt"
	"strings"

	"user-management-api/internal/domain"
	"user-management-api/pkg/utils"
)

// DefaultPageSize 列表固定每页条数
const DefaultPageSize = 10

// Notifier 创建成功后的通知，内部吞掉投递错误
type Notifier interface {
	UserCreated(ctx context.Context, u domain.User)
}

type Service struct {
	repo      domain.UserRepository
	validator *Validator
	notifier  Notifier
	pageSize  int
}

func NewService(repo domain.UserRepository, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(repo),
		notifier:  notifier,
		pageSize:  DefaultPageSize,
	}
}

// Created POST /users 的返回体
type Created struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Create 校验 → 哈希 → 入库 → 通知；邮件失败不影响结果
func (s *Service) Create(ctx context.Context, in CreateInput) (Created, error) {
	valid, err := s.validator.Validate(ctx, in)
	if err != nil {
		return Created{}, err
	}
	hash, err := utils.HashPassword(valid.Password)
	if err != nil {
		return Created{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		ID:           utils.NewID(),
		Name:         valid.Name,
		Email:        valid.Email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return Created{}, err
	}
	if s.notifier != nil {
		s.notifier.UserCreated(ctx, u)
	}
	return Created{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Format(domain.ISO8601),
	}, nil
}

type ListParams struct {
	Search string
	SortBy string
	Page   int
}

// Row 列表中的一行
type Row struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
	OrdersCount int64  `json:"orders_count"`
	CanEdit     bool   `json:"can_edit"`
}

type Page struct {
	Page  int   `json:"page"`
	Users []Row `json:"users"`
}

// List actor 可以为 nil，此时 can_edit 全部为 false
func (s *Service) List(ctx context.Context, actor *domain.User, p ListParams) (Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	users, _, err := s.repo.ListActive(ctx, domain.ListQuery{
		Search:   strings.TrimSpace(p.Search),
		SortBy:   p.SortBy,
		Page:     p.Page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return Page{}, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	counts, err := s.repo.CountOrders(ctx, ids)
	if err != nil {
		return Page{}, err
	}

	rows := make([]Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, Row{
			ID:          u.ID,
			Name:        u.Name,
			Email:       u.Email,
			Role:        string(u.Role),
			CreatedAt:   u.CreatedAt.Format(domain.ISO8601),
			OrdersCount: counts[u.ID],
			CanEdit:     CanEdit(actor, u),
		})
	}
	return Page{Page: p.Page, Users: rows}, nil
}

// Profile GET /user 的返回体
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func ProfileOf(u domain.User) Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format(domain.ISO8601),
	}
}
