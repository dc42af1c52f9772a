package service

import (
	"context"
	"testing"

	"trebolsoft/internal/config"
	"trebolsoft/internal/dto"
	"trebolsoft/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nuevoAuth() (AuthService, *fakeUsuarioRepo) {
	repo := newFakeUsuarioRepo()
	cfg := &config.Config{
		JWTSecret:          "secreto-de-prueba",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
	}
	return NewAuthService(repo, cfg), repo
}

func crearCobrador(t *testing.T, svc AuthService) dto.UsuarioResponse {
	t.Helper()
	resp, err := svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "pedro", Nombre: "Pedro Paramo", Password: "comala1955", Rol: model.RolCobrador,
	})
	require.NoError(t, err)
	return *resp
}

func TestLogin(t *testing.T) {
	svc, _ := nuevoAuth()
	crearCobrador(t, svc)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "pedro", resp.User.Username)
	assert.Equal(t, model.RolCobrador, resp.User.Rol)

	// El token lleva identidad y rol firmados con el secreto configurado.
	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("secreto-de-prueba"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID, claims["user_id"])
	assert.Equal(t, model.RolCobrador, claims["rol"])
}

func TestLoginCredencialesInvalidas(t *testing.T) {
	svc, _ := nuevoAuth()
	crearCobrador(t, svc)
	ctx := context.Background()

	_, err := svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "incorrecta"})
	assert.Error(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "nadie", Password: "comala1955"})
	assert.Error(t, err)
}

func TestLoginUsuarioDesactivado(t *testing.T) {
	svc, repo := nuevoAuth()
	user := crearCobrador(t, svc)
	ctx := context.Background()

	id, err := uuid.Parse(user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DesactivarUsuario(ctx, id))

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	assert.Error(t, err)

	// Reactivado vuelve a entrar.
	require.NoError(t, svc.ReactivarUsuario(ctx, id))
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	assert.NoError(t, err)
	assert.True(t, repo.usuarios[id].Activo)
}

func TestRefresh(t *testing.T) {
	svc, _ := nuevoAuth()
	crearCobrador(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	require.NoError(t, err)

	renovado, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, renovado.AccessToken)
	assert.Equal(t, login.User.ID, renovado.User.ID)

	_, err = svc.Refresh(ctx, "no-es-un-jwt")
	assert.Error(t, err)
}

func TestRefreshUsuarioDesactivado(t *testing.T) {
	svc, _ := nuevoAuth()
	user := crearCobrador(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	require.NoError(t, err)

	id, err := uuid.Parse(user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DesactivarUsuario(ctx, id))

	// El refresh de un usuario dado de baja no emite tokens nuevos.
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.Error(t, err)
}

func TestCrearUsuarioConSupervisor(t *testing.T) {
	svc, repo := nuevoAuth()
	ctx := context.Background()

	supervisorID := repo.agregar(model.RolSupervisor, nil)
	sid := supervisorID.String()

	resp, err := svc.CrearUsuario(ctx, dto.CrearUsuarioRequest{
		Username: "juan", Nombre: "Juan Preciado", Password: "comala1955",
		Rol: model.RolCobrador, SupervisorID: &sid,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SupervisorID)
	assert.Equal(t, sid, *resp.SupervisorID)

	// El supervisor referido tiene que existir y tener rol supervisor.
	inexistente := uuid.NewString()
	_, err = svc.CrearUsuario(ctx, dto.CrearUsuarioRequest{
		Username: "otro", Nombre: "Otro Mas", Password: "comala1955",
		Rol: model.RolCobrador, SupervisorID: &inexistente,
	})
	assert.Error(t, err)

	cobradorID := repo.agregar(model.RolCobrador, nil)
	cid := cobradorID.String()
	_, err = svc.CrearUsuario(ctx, dto.CrearUsuarioRequest{
		Username: "otro", Nombre: "Otro Mas", Password: "comala1955",
		Rol: model.RolCobrador, SupervisorID: &cid,
	})
	assert.Error(t, err)
}

func TestListarUsuarios(t *testing.T) {
	svc, repo := nuevoAuth()
	ctx := context.Background()

	activoID := repo.agregar(model.RolCobrador, nil)
	bajaID := repo.agregar(model.RolCobrador, nil)
	require.NoError(t, svc.DesactivarUsuario(ctx, bajaID))

	soloActivos, err := svc.ListarUsuarios(ctx, false)
	require.NoError(t, err)
	require.Len(t, soloActivos, 1)
	assert.Equal(t, activoID.String(), soloActivos[0].ID)

	todos, err := svc.ListarUsuarios(ctx, true)
	require.NoError(t, err)
	assert.Len(t, todos, 2)
}

func TestActualizarUsuario(t *testing.T) {
	svc, repo := nuevoAuth()
	user := crearCobrador(t, svc)
	ctx := context.Background()

	id, err := uuid.Parse(user.ID)
	require.NoError(t, err)

	resp, err := svc.ActualizarUsuario(ctx, id, dto.ActualizarUsuarioRequest{
		Nombre: "Pedro P.", Password: "nueva-clave-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pedro P.", resp.Nombre)

	// La clave anterior deja de servir.
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "comala1955"})
	assert.Error(t, err)
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "pedro", Password: "nueva-clave-123"})
	assert.NoError(t, err)

	// Quitar el supervisor con cadena vacía.
	supervisorID := repo.agregar(model.RolSupervisor, nil)
	sid := supervisorID.String()
	resp, err = svc.ActualizarUsuario(ctx, id, dto.ActualizarUsuarioRequest{SupervisorID: &sid})
	require.NoError(t, err)
	require.NotNil(t, resp.SupervisorID)

	vacio := ""
	resp, err = svc.ActualizarUsuario(ctx, id, dto.ActualizarUsuarioRequest{SupervisorID: &vacio})
	require.NoError(t, err)
	assert.Nil(t, resp.SupervisorID)
}
