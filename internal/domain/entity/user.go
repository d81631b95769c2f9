package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

// User участник системы: гражданин, агент или администратор.
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	Address      *string
	Role         valueobject.Role
	DepartmentID *uuid.UUID
	Active       bool
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
}

// FullName имя для писем и отчётов.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Department департамент мэрии, к которому относятся агенты и обращения.
type Department struct {
	ID          uuid.UUID
	Name        string
	Description *string
}

// Neighborhood квартал города.
type Neighborhood struct {
	ID         uuid.UUID
	Name       string
	PostalCode *string
}
