package domain

import (
	"context"
	"time"
)

// ISO8601 对外输出的时间格式（数字时区偏移，不用 "Z"）
const ISO8601 = "2006-01-02T15:04:05-07:00"

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleManager       Role = "manager"
	RoleUser          Role = "user"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListQuery.SortBy 允许的排序列
const (
	SortByName      = "name"
	SortByEmail     = "email"
	SortByCreatedAt = "created_at"
)

// ListQuery 活跃用户分页查询条件
type ListQuery struct {
	Search   string
	SortBy   string
	Page     int
	PageSize int
}

func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListActive(ctx context.Context, q ListQuery) ([]User, int64, error)
	CountOrders(ctx context.Context, userIDs []string) (map[string]int64, error)
}
