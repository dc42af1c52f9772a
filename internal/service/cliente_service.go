package service

import (
	"context"
	"errors"

	"trebolsoft/internal/dto"
	"trebolsoft/internal/model"
	"trebolsoft/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteService interface {
	Crear(ctx context.Context, req dto.ClienteRequest) (*dto.ClienteResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, zona string, incluirInactivos bool) ([]dto.ClienteResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ClienteRequest) (*dto.ClienteResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
}

type clienteService struct {
	repo repository.ClienteRepository
}

func NewClienteService(repo repository.ClienteRepository) ClienteService {
	return &clienteService{repo: repo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.ClienteRequest) (*dto.ClienteResponse, error) {
	cliente := &model.Cliente{
		Nombre:    req.Nombre,
		Documento: req.Documento,
		Telefono:  req.Telefono,
		Direccion: req.Direccion,
		Zona:      req.Zona,
		Activo:    true,
	}
	if err := s.repo.Create(ctx, cliente); err != nil {
		return nil, err
	}
	resp := clienteToResponse(cliente)
	return &resp, nil
}

func (s *clienteService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownClient
		}
		return nil, err
	}
	resp := clienteToResponse(cliente)
	return &resp, nil
}

func (s *clienteService) Listar(ctx context.Context, zona string, incluirInactivos bool) ([]dto.ClienteResponse, error) {
	clientes, err := s.repo.List(ctx, zona, incluirInactivos)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ClienteResponse, len(clientes))
	for i := range clientes {
		resp[i] = clienteToResponse(&clientes[i])
	}
	return resp, nil
}

func (s *clienteService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ClienteRequest) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownClient
		}
		return nil, err
	}
	if req.Nombre != "" {
		cliente.Nombre = req.Nombre
	}
	if req.Documento != nil {
		cliente.Documento = req.Documento
	}
	if req.Telefono != nil {
		cliente.Telefono = req.Telefono
	}
	if req.Direccion != nil {
		cliente.Direccion = req.Direccion
	}
	if req.Zona != nil {
		cliente.Zona = req.Zona
	}
	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}
	resp := clienteToResponse(cliente)
	return &resp, nil
}

func (s *clienteService) Desactivar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func clienteToResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Documento: c.Documento,
		Telefono:  c.Telefono,
		Direccion: c.Direccion,
		Zona:      c.Zona,
		Activo:    c.Activo,
	}
}
