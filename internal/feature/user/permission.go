package user

import "user-management-api/internal/domain"

// CanEdit 判断 actor 能否编辑 target：管理员全部可以，经理可以编辑普通用户，其余只能编辑自己
func CanEdit(actor *domain.User, target domain.User) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdministrator:
		return true
	case domain.RoleManager:
		if target.Role == domain.RoleUser {
			return true
		}
	}
	return actor.ID == target.ID
}
