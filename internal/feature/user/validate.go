package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"user-management-api/internal/domain"
)

// CreateInput 原始请求体，字段类型由校验决定
type CreateInput struct {
	Name     any `json:"name"`
	Email    any `json:"email"`
	Password any `json:"password"`
}

// ValidInput 校验通过后的值，不做 trim
type ValidInput struct {
	Name     string
	Email    string
	Password string
}

// EmailLookup 唯一性检查只需要按邮箱查询
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Validator struct {
	v      *validator.Validate
	lookup EmailLookup
}

func NewValidator(lookup EmailLookup) *Validator {
	return &Validator{v: validator.New(), lookup: lookup}
}

// 每个字段的规则，顺序即报错顺序
var fieldRules = map[string][]string{
	"name":     {"max=255"},
	"email":    {"email", "max=255"},
	"password": {"min=8"},
}

// Validate 收集所有字段错误；查库失败按存储错误返回，不算校验错误
func (val *Validator) Validate(ctx context.Context, in CreateInput) (ValidInput, error) {
	verr := domain.NewValidationError()

	name, _ := val.field(verr, "name", in.Name)
	email, emailOK := val.field(verr, "email", in.Email)
	password, _ := val.field(verr, "password", in.Password)

	if emailOK && val.lookup != nil {
		existing, err := val.lookup.FindByEmail(ctx, email)
		if err != nil {
			return ValidInput{}, fmt.Errorf("check email uniqueness: %w", err)
		}
		if existing != nil {
			verr.Add("email", "The email has already been taken.")
		}
	}
	if !verr.Empty() {
		return ValidInput{}, verr
	}
	return ValidInput{Name: name, Email: email, Password: password}, nil
}

// field 先查存在/类型，失败即停止；之后跑全部格式规则
func (val *Validator) field(verr *domain.ValidationError, name string, raw any) (string, bool) {
	if raw == nil {
		verr.Add(name, fmt.Sprintf("The %s field is required.", name))
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		verr.Add(name, fmt.Sprintf("The %s field must be a string.", name))
		return "", false
	}
	if s == "" {
		verr.Add(name, fmt.Sprintf("The %s field is required.", name))
		return "", false
	}
	valid := true
	for _, rule := range fieldRules[name] {
		if err := val.v.Var(s, rule); err != nil {
			verr.Add(name, message(name, err))
			valid = false
		}
	}
	return s, valid
}

func message(field string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("The %s field is invalid.", field)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
