package infra

// pdf.go — cierre report generation using go-pdf/fpdf.
// Generates an A4 summary of a sealed period:
//   - Operator name and period window
//   - Saldo inicial / saldo final
//   - Signed totals per movement type
//   - Movement listing (timestamp, tipo, description, signed amount)
//
// The output file is saved to storagePath/cierre_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"trebolsoft/internal/model"

	"github.com/go-pdf/fpdf"
)

var etiquetasTotales = []struct{ tipo, etiqueta string }{
	{model.TipoIngreso, "Ingresos"},
	{model.TipoPago, "Pagos de clientes"},
	{model.TipoPrestamo, "Prestamos recibidos"},
	{model.TipoGasto, "Gastos"},
	{model.TipoTransferencia, "Transferencias salientes"},
	{model.TipoRetiro, "Retiros"},
	{model.TipoGastoGeneral, "Gastos generales"},
	{model.TipoMicroseguro, "Microseguros"},
	{model.TipoVolado, "Volados"},
}

// GenerateCierrePDF renders the report for a sealed cierre.
// Returns the absolute path to the generated file.
func GenerateCierrePDF(cierre *model.CierreCaja, operador *model.Usuario, movimientos []model.MovimientoCaja, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_%s.pdf", cierre.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Cierre de Caja", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Cobrador: "+operador.Nombre, "", 1, "L", false, 0, "")
	periodo := "Periodo: " + cierre.OpenedAt.Format("02/01/2006 15:04")
	if cierre.ClosedAt != nil {
		periodo += " — " + cierre.ClosedAt.Format("02/01/2006 15:04")
	}
	pdf.CellFormat(contentW, 6, periodo, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Saldos ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.6, 6, "Saldo inicial:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW*0.4, 6, "$"+cierre.SaldoInicial.StringFixed(2), "", 1, "R", false, 0, "")

	if cierre.SaldoFinal != nil {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW*0.6, 6, "Saldo final:", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 6, "$"+cierre.SaldoFinal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// ── Totales por tipo ─────────────────────────────────────────────────────
	totales := cierre.Totales()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Totales del periodo", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, fila := range etiquetasTotales {
		monto := totales[fila.tipo]
		if monto.IsZero() {
			continue
		}
		pdf.CellFormat(contentW*0.6, 5, fila.etiqueta+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 5, "$"+monto.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Movimientos ──────────────────────────────────────────────────────────
	col1 := contentW * 0.18 // fecha
	col2 := contentW * 0.17 // tipo
	col3 := contentW * 0.45 // descripcion
	col4 := contentW * 0.20 // monto

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Fecha", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Tipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "Descripcion", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "Monto", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for i := range movimientos {
		m := &movimientos[i]
		if m.Tipo == model.TipoCierre {
			continue
		}
		descripcion := m.Descripcion
		if len(descripcion) > 48 {
			descripcion = descripcion[:47] + "…"
		}
		pdf.CellFormat(col1, 5, m.CreatedAt.Format("02/01 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, m.Tipo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, descripcion, "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+m.MontoConSigno().StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
