package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"user-management-api/internal/domain"
	"user-management-api/internal/feature/user"
)

type UserRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepo(db *gorm.DB, timeout time.Duration) *UserRepo {
	return &UserRepo{db: db, timeout: timeout}
}

var _ domain.UserRepository = (*UserRepo)(nil)

// 排序白名单，其他值一律按 created_at
var sortColumns = map[string]string{
	domain.SortByName:      "name",
	domain.SortByEmail:     "email",
	domain.SortByCreatedAt: "created_at",
}

// with 每次调用都带超时
func (r *UserRepo) with(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if r.timeout <= 0 {
		return r.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

func (r *UserRepo) AutoMigrate(ctx context.Context) error {
	db, cancel := r.with(ctx)
	defer cancel()
	if err := db.AutoMigrate(&user.UserModel{}, &user.OrderModel{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	db, cancel := r.with(ctx)
	defer cancel()
	m := user.FromDomain(*u)
	if err := db.Create(&m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrConflict
		}
		return storeErr("create user", err)
	}
	// 取回数据库默认值（role / active / 时间戳）
	if err := db.First(&m, "id = ?", m.ID).Error; err != nil {
		return storeErr("reload user", err)
	}
	*u = m.ToDomain()
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepo) findOne(ctx context.Context, cond string, arg any) (*domain.User, error) {
	db, cancel := r.with(ctx)
	defer cancel()
	var m user.UserModel
	err := db.First(&m, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}
	u := m.ToDomain()
	return &u, nil
}

// ListActive 只查 active 用户；搜索不转义 % 和 _。
// SQLite 的 LOWER 只处理 ASCII，存储为 "Émile" 的值在 SQLite 下搜不到

func (r *UserRepo) ListActive(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	tx := db.Model(&user.UserModel{}).Where("active = ?", true)
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where(db.Where("LOWER(name) LIKE ?", like).Or("LOWER(email) LIKE ?", like))
	}
	// Count 和 Find 共用同一组条件
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count users", err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	var ms []user.UserModel
	err := tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(q.Offset()).
		Limit(q.PageSize).
		Find(&ms).Error
	if err != nil {
		return nil, 0, storeErr("list users", err)
	}
	out := make([]domain.User, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ToDomain())
	}
	return out, total, nil
}

// CountOrders 一次 GROUP BY 拿到整页的订单数，没有订单的用户不在结果里
func (r *UserRepo) CountOrders(ctx context.Context, userIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	db, cancel := r.with(ctx)
	defer cancel()

	var rows []struct {
		UserID string
		N      int64
	}
	err := db.Model(&user.OrderModel{}).
		Select("user_id, COUNT(*) AS n").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("count orders", err)
	}
	for _, row := range rows {
		out[row.UserID] = row.N
	}
	return out, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrStoreTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 驱动未翻译时按错误文本兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
