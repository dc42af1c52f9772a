package model

import (
	"time"

	"github.com/google/uuid"
)

// Usuario stores system users with role-based access.
// Rol: "cobrador" | "supervisor" | "administrador"
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Rol          string `gorm:"type:varchar(20);not null"`
	// SupervisorID links a cobrador to the supervisor of their team;
	// nil for supervisores and administradores.
	SupervisorID *uuid.UUID `gorm:"type:uuid;index"`
	Activo       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roles
const (
	RolCobrador      = "cobrador"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)
