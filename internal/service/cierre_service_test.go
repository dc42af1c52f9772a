package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trebolsoft/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sembrarMovimientos(t *testing.T, e *entorno) {
	t.Helper()
	ctx := context.Background()
	for tipo, monto := range map[string]float64{
		model.TipoIngreso: 500,
		model.TipoGasto:   120,
		model.TipoRetiro:  50,
	} {
		_, err := e.caja.RegistrarMovimiento(ctx, e.cobrador, MovimientoDraft{
			OperadorID: e.cobrador.ID, Tipo: tipo, Monto: d(monto), Descripcion: tipo,
		})
		require.NoError(t, err)
	}
}

func TestPrepararCierre(t *testing.T) {
	e := nuevoEntorno()
	sembrarMovimientos(t, e)

	previa, err := e.cierre.PrepararCierre(context.Background(), e.cobrador, e.cobrador.ID)
	require.NoError(t, err)

	assert.Equal(t, "0", previa.SaldoInicial.String())
	assert.Equal(t, "330", previa.SaldoProyectado.String())
	assert.Equal(t, "500", previa.Totales[model.TipoIngreso].String())
	assert.Len(t, previa.Movimientos, 3)

	// Sin efectos: la previa se puede pedir cuantas veces haga falta.
	otra, err := e.cierre.PrepararCierre(context.Background(), e.cobrador, e.cobrador.ID)
	require.NoError(t, err)
	assert.True(t, previa.SaldoProyectado.Equal(otra.SaldoProyectado))
}

func TestConfirmarCierre(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	sembrarMovimientos(t, e)

	sellado, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	require.NoError(t, err)

	assert.Equal(t, "cerrada", sellado.Estado)
	require.NotNil(t, sellado.SaldoFinal)
	assert.Equal(t, "330", sellado.SaldoFinal.String())
	require.NotNil(t, sellado.ClosedAt)
	assert.Equal(t, "500", sellado.TotalIngresos.String())
	assert.Equal(t, "-120", sellado.TotalGastos.String())
	assert.Equal(t, "-50", sellado.TotalRetiros.String())

	// Marcador de cierre en la bitácora, con signo nulo.
	var marcadores int
	for _, m := range e.movimientos.movs {
		if m.Tipo == model.TipoCierre {
			marcadores++
			assert.True(t, m.MontoConSigno().IsZero())
		}
	}
	assert.Equal(t, 1, marcadores)

	// El periodo siguiente abre sembrado con el saldo final.
	siguiente, err := e.cierres.FindAbierto(ctx, e.cobrador.ID)
	require.NoError(t, err)
	assert.Equal(t, "330", siguiente.SaldoInicial.String())
	assert.Equal(t, *sellado.ClosedAt, siguiente.OpenedAt)

	// Movimientos posteriores caen en el periodo nuevo.
	_, err = e.caja.RegistrarMovimiento(ctx, e.cobrador, MovimientoDraft{
		OperadorID: e.cobrador.ID, Tipo: model.TipoIngreso, Monto: d(100), Descripcion: "nueva jornada",
	})
	require.NoError(t, err)

	proy, err := e.caja.Saldo(ctx, e.cobrador, e.cobrador.ID)
	require.NoError(t, err)
	assert.Equal(t, "430", proy.Saldo.String())
	assert.Equal(t, "100", proy.Totales[model.TipoIngreso].String())
}

func TestConfirmarCierreSaldoDesactualizado(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	sembrarMovimientos(t, e)

	_, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(999))
	assert.ErrorIs(t, err, ErrStaleClosure)

	// El periodo sigue abierto y el saldo correcto sella sin problema.
	periodo, err := e.cierres.FindAbierto(ctx, e.cobrador.ID)
	require.NoError(t, err)
	assert.Equal(t, "abierta", periodo.Estado)

	_, err = e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	assert.NoError(t, err)
}

func TestConfirmarCierreRepetido(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	sembrarMovimientos(t, e)

	_, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	require.NoError(t, err)

	// El reintento del mismo cierre encuentra el periodo nuevo vacío.
	_, err = e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestConfirmarCierreSinPeriodo(t *testing.T) {
	e := nuevoEntorno()

	_, err := e.cierre.ConfirmarCierre(context.Background(), e.cobrador, e.cobrador.ID, d(0))
	assert.ErrorIs(t, err, ErrPeriodClosed)
}

func TestCierreAjeno(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	sembrarMovimientos(t, e)
	ajenoID := e.usuarios.agregar(model.RolCobrador, nil)

	_, err := e.cierre.ConfirmarCierre(ctx, Caller{ID: ajenoID, Rol: model.RolCobrador}, e.cobrador.ID, d(330))
	assert.ErrorIs(t, err, ErrForbidden)

	// El supervisor del equipo sí puede sellar la caja del cobrador.
	_, err = e.cierre.ConfirmarCierre(ctx, e.supervisor, e.cobrador.ID, d(330))
	assert.NoError(t, err)
}

func TestPreviaExcluyeMarcadorDeCierre(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	sembrarMovimientos(t, e)

	_, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	require.NoError(t, err)

	_, err = e.caja.RegistrarMovimiento(ctx, e.cobrador, MovimientoDraft{
		OperadorID: e.cobrador.ID, Tipo: model.TipoIngreso, Monto: d(100), Descripcion: "nueva jornada",
	})
	require.NoError(t, err)

	// El marcador del sello anterior comparte el instante de apertura pero no
	// es un movimiento del periodo en curso.
	previa, err := e.cierre.PrepararCierre(ctx, e.cobrador, e.cobrador.ID)
	require.NoError(t, err)
	require.Len(t, previa.Movimientos, 1)
	assert.Equal(t, model.TipoIngreso, previa.Movimientos[0].Tipo)
	assert.Equal(t, "430", previa.SaldoProyectado.String())
}

func TestMovimientosYCierresConcurrentes(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	const depositos = 40

	var wg sync.WaitGroup
	for i := 0; i < depositos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.caja.RegistrarMovimiento(ctx, e.cobrador, MovimientoDraft{
				OperadorID: e.cobrador.ID, Tipo: model.TipoIngreso, Monto: d(10), Descripcion: "deposito",
			})
			assert.NoError(t, err)
		}()
	}

	// Cierres en carrera con los depósitos. Saldo desactualizado y periodo
	// vacío son resultados esperados de la carrera; cualquier otro error no.
	selladosListos := make(chan struct{})
	go func() {
		defer close(selladosListos)
		for i := 0; i < 10; i++ {
			proy, err := e.caja.Saldo(ctx, e.cobrador, e.cobrador.ID)
			if err != nil || proy.Periodo == nil {
				continue
			}
			_, err = e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, proy.Saldo)
			if err != nil && !errors.Is(err, ErrStaleClosure) && !errors.Is(err, ErrPeriodClosed) {
				assert.NoError(t, err)
			}
		}
	}()

	wg.Wait()
	<-selladosListos

	// Cada depósito cuenta exactamente una vez: la cadena de periodos arranca
	// en cero, cada sello congela sus totales y el saldo proyectado final los
	// acumula todos.
	proy, err := e.caja.Saldo(ctx, e.cobrador, e.cobrador.ID)
	require.NoError(t, err)
	assert.Equal(t, "400", proy.Saldo.String())

	sellados, _, err := e.cierre.Historial(ctx, e.cobrador, nil, 1, 100)
	require.NoError(t, err)
	for _, c := range sellados {
		require.NotNil(t, c.SaldoFinal)
		suma := c.SaldoInicial
		for _, v := range c.Totales() {
			suma = suma.Add(v)
		}
		assert.True(t, suma.Equal(*c.SaldoFinal))
	}
	// Los periodos encadenan saldo final → saldo inicial sin huecos.
	for i := 0; i+1 < len(sellados); i++ {
		assert.True(t, sellados[i].SaldoInicial.Equal(*sellados[i+1].SaldoFinal))
	}
	if len(sellados) > 0 {
		assert.True(t, sellados[len(sellados)-1].SaldoInicial.IsZero())
		assert.True(t, proy.SaldoInicial.Equal(*sellados[0].SaldoFinal))
	}
}

func TestHistorialCierres(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()

	sembrarMovimientos(t, e)
	_, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	require.NoError(t, err)

	_, err = e.caja.RegistrarMovimiento(ctx, e.cobrador, MovimientoDraft{
		OperadorID: e.cobrador.ID, Tipo: model.TipoGasto, Monto: d(30), Descripcion: "gasolina",
	})
	require.NoError(t, err)
	_, err = e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(300))
	require.NoError(t, err)

	items, total, err := e.cierre.Historial(ctx, e.cobrador, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	// Más reciente primero.
	assert.Equal(t, "300", items[0].SaldoFinal.String())
	assert.Equal(t, "330", items[1].SaldoFinal.String())

	// Paginación.
	items, total, err = e.cierre.Historial(ctx, e.cobrador, nil, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "330", items[0].SaldoFinal.String())
}

func TestHistorialAlcancePorRol(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()

	// Cierre del cobrador supervisado y de un cobrador ajeno.
	sembrarMovimientos(t, e)
	_, err := e.cierre.ConfirmarCierre(ctx, e.cobrador, e.cobrador.ID, d(330))
	require.NoError(t, err)

	ajenoID := e.usuarios.agregar(model.RolCobrador, nil)
	ajeno := Caller{ID: ajenoID, Rol: model.RolCobrador}
	_, err = e.caja.RegistrarMovimiento(ctx, ajeno, MovimientoDraft{
		OperadorID: ajenoID, Tipo: model.TipoIngreso, Monto: d(10), Descripcion: "x",
	})
	require.NoError(t, err)
	_, err = e.cierre.ConfirmarCierre(ctx, ajeno, ajenoID, d(10))
	require.NoError(t, err)

	// El supervisor solo ve los cierres de su equipo.
	_, total, err := e.cierre.Historial(ctx, e.supervisor, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// El admin los ve todos.
	_, total, err = e.cierre.Historial(ctx, e.admin, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Pedir explícitamente una caja fuera de alcance falla.
	_, _, err = e.cierre.Historial(ctx, e.supervisor, &ajenoID, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}
