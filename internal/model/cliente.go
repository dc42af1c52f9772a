package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is a debtor record. The ledger references clients by id only
// (volados and their recovery pagos); collection schedules live elsewhere.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null"`
	Documento *string   `gorm:"uniqueIndex"`
	Telefono  *string
	Direccion *string
	Zona      *string `gorm:"type:varchar(50);index"`
	Activo    bool    `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
