package models

// Role — роль пользователя, закрытое перечисление
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid проверяет, что роль входит в допустимый набор
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User представляет пользователя
type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Role     Role
	IsActive bool
}
