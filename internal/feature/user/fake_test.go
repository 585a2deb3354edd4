package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"user-management-api/internal/domain"
)

// memRepo 内存版仓储，只给测试用
type memRepo struct {
	mu         sync.Mutex
	users      []domain.User
	orders     map[string]int64
	findErr    error
	createErr  error
	countCalls int
	now        time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]int64{}, now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (r *memRepo) add(u domain.User) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.CreatedAt.IsZero() {
		r.now = r.now.Add(time.Minute)
		u.CreatedAt = r.now
	}
	r.users = append(r.users, u)
	return u
}

func (r *memRepo) Create(_ context.Context, u *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	for _, x := range r.users {
		if x.Email == u.Email {
			r.mu.Unlock()
			return domain.ErrConflict
		}
	}
	r.mu.Unlock()
	u.Active = true
	*u = r.add(*u)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListActive(_ context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	s := strings.ToLower(q.Search)
	for _, u := range r.users {
		if !u.Active {
			continue
		}
		if s != "" && !strings.Contains(strings.ToLower(u.Name), s) && !strings.Contains(strings.ToLower(u.Email), s) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch q.SortBy {
		case domain.SortByName:
			return out[i].Name < out[j].Name
		case domain.SortByEmail:
			return out[i].Email < out[j].Email
		default:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
	})
	total := int64(len(out))
	off := q.Offset()
	if off >= len(out) {
		return []domain.User{}, total, nil
	}
	end := off + q.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[off:end], total, nil
}

func (r *memRepo) CountOrders(_ context.Context, ids []string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		if n, ok := r.orders[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type recordingNotifier struct {
	users []domain.User
}

func (n *recordingNotifier) UserCreated(_ context.Context, u domain.User) {
	n.users = append(n.users, u)
}
