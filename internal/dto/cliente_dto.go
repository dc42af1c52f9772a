package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ClienteRequest struct {
	Nombre    string  `json:"nombre"    validate:"required,min=2,max=150"`
	Documento *string `json:"documento" validate:"omitempty,min=5,max=30"`
	Telefono  *string `json:"telefono"  validate:"omitempty,max=30"`
	Direccion *string `json:"direccion" validate:"omitempty,max=250"`
	Zona      *string `json:"zona"      validate:"omitempty,max=50"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResponse struct {
	ID        string  `json:"id"`
	Nombre    string  `json:"nombre"`
	Documento *string `json:"documento"`
	Telefono  *string `json:"telefono"`
	Direccion *string `json:"direccion"`
	Zona      *string `json:"zona"`
	Activo    bool    `json:"activo"`
}
