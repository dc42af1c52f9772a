package worker

// reporte_worker.go
// Processes cierre report jobs from QueueReporte: renders the PDF summary of a
// sealed period and enqueues an email job addressed to the collector's
// supervisor (or to the collector when no supervisor is assigned).

import (
	"context"
	"encoding/json"
	"fmt"

	"trebolsoft/internal/infra"
	"trebolsoft/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReporteCierrePayload is the job envelope sent to QueueReporte.
type ReporteCierrePayload struct {
	CierreID   string `json:"cierre_id"`
	OperadorID string `json:"operador_id"`
}

// ReporteWorker renders cierre reports and hands them off to the email queue.
type ReporteWorker struct {
	cierres     repository.CierreRepository
	movimientos repository.MovimientoRepository
	usuarios    repository.UsuarioRepository
	dispatcher  *Dispatcher
	storagePath string
}

func NewReporteWorker(
	cierres repository.CierreRepository,
	movimientos repository.MovimientoRepository,
	usuarios repository.UsuarioRepository,
	dispatcher *Dispatcher,
	storagePath string,
) *ReporteWorker {
	return &ReporteWorker{
		cierres:     cierres,
		movimientos: movimientos,
		usuarios:    usuarios,
		dispatcher:  dispatcher,
		storagePath: storagePath,
	}
}

// Process renders the PDF and enqueues the delivery email.
// Returning an error triggers the pool's retry/DLQ handling.
func (w *ReporteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReporteCierrePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("reporte_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}

	cierreID, err := uuid.Parse(payload.CierreID)
	if err != nil {
		log.Error().Str("cierre_id", payload.CierreID).Msg("reporte_worker: invalid cierre_id")
		return nil
	}

	cierre, err := w.cierres.FindByID(ctx, cierreID)
	if err != nil {
		return fmt.Errorf("reporte_worker: load cierre: %w", err)
	}
	operador, err := w.usuarios.FindByID(ctx, cierre.OperadorID)
	if err != nil {
		return fmt.Errorf("reporte_worker: load operador: %w", err)
	}

	filtro := repository.MovimientoFiltro{Desde: &cierre.OpenedAt, Hasta: cierre.ClosedAt}
	movimientos, err := w.movimientos.List(ctx, cierre.OperadorID, filtro)
	if err != nil {
		return fmt.Errorf("reporte_worker: list movimientos: %w", err)
	}

	pdfPath, err := infra.GenerateCierrePDF(cierre, operador, movimientos, w.storagePath)
	if err != nil {
		return fmt.Errorf("reporte_worker: generate PDF: %w", err)
	}

	// Deliver to the supervisor when the collector has one
	destinatario := operador.Email
	if operador.SupervisorID != nil {
		if supervisor, err := w.usuarios.FindByID(ctx, *operador.SupervisorID); err == nil && supervisor.Email != nil {
			destinatario = supervisor.Email
		}
	}
	if destinatario == nil || *destinatario == "" {
		log.Warn().
			Str("cierre_id", payload.CierreID).
			Str("operador", operador.Username).
			Msg("reporte_worker: no recipient email, report generated but not sent")
		return nil
	}

	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: *destinatario,
		Subject: fmt.Sprintf("Cierre de caja — %s", operador.Nombre),
		Body:    fmt.Sprintf("Se adjunta el reporte del cierre de caja de %s.", operador.Nombre),
		PDFPath: pdfPath,
	})
}
