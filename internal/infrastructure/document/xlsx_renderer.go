package document

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

const sheetName = "Mission Order"

// Config holds the fixed header data printed on every mission order
type Config struct {
	Organization string
	Currency     string
}

// XLSXRenderer renders mission orders as Excel workbooks
type XLSXRenderer struct {
	cfg    Config
	logger *zap.Logger
}

// NewXLSXRenderer creates an xlsx renderer
func NewXLSXRenderer(cfg Config, logger *zap.Logger) *XLSXRenderer {
	if cfg.Currency == "" {
		cfg.Currency = "XOF"
	}
	return &XLSXRenderer{cfg: cfg, logger: logger}
}

// ContentType implements port.DocumentRenderer
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension implements port.DocumentRenderer
func (r *XLSXRenderer) FileExtension() string {
	return ".xlsx"
}

var stageLabels = map[workflow.Role]string{
	workflow.RoleChefService: "Head of service",
	workflow.RoleDirecteur:   "Director",
	workflow.RoleFinance:     "Finance",
}

// sheetWriter appends rows to a sheet and remembers the first write error
type sheetWriter struct {
	f    *excelize.File
	row  int
	bold int
	err  error
}

func (w *sheetWriter) line(values ...interface{}) {
	w.row++
	if w.err != nil || len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheetName, cell, &values)
}

func (w *sheetWriter) heading(values ...interface{}) {
	w.line(values...)
	if w.err != nil {
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(values), w.row)
	first, _ := excelize.CoordinatesToCellName(1, w.row)
	w.err = w.f.SetCellStyle(sheetName, first, last, w.bold)
}

// Render implements port.DocumentRenderer
func (r *XLSXRenderer) Render(ctx context.Context, doc *port.MissionDocument) ([]byte, error) {
	if doc == nil || doc.Mission == nil {
		return nil, fmt.Errorf("mission document is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	m := doc.Mission
	name := func(id string) string {
		if n := doc.Names[id]; n != "" {
			return n
		}
		return id
	}

	w := &sheetWriter{f: f, bold: bold}
	w.line(r.cfg.Organization)
	w.line("MISSION ORDER")
	if w.err == nil {
		w.err = f.SetCellStyle(sheetName, "A2", "A2", title)
	}
	w.line("Reference", m.Reference)
	w.line()

	w.heading("Mission")
	w.line("Title", m.Title)
	if m.Description != "" {
		w.line("Description", m.Description)
	}
	w.line("Agent", name(m.AgentID))
	w.line("Destination", m.Destination)
	w.line("Period", fmt.Sprintf("%s to %s", m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02")))
	w.line("Duration (days)", m.DurationDays())
	w.line("Status", m.Status.String())
	if doc.Project != nil {
		w.line("Project", fmt.Sprintf("%s - %s", doc.Project.Code, doc.Project.Name))
	}
	if m.Status == workflow.StateRejected {
		w.line("Rejection reason", m.RejectionReason)
	}
	w.line()

	if len(doc.Participants) > 0 {
		w.heading("Participants")
		for _, p := range doc.Participants {
			role := ""
			if p.IsPrimary {
				role = "primary"
			}
			w.line(name(p.AgentID), role)
		}
		w.line()
	}

	w.heading("Expense", "Quantity", "Unit price", "Subtotal ("+r.cfg.Currency+")")
	total := m.EstimatedAmount
	if e := doc.Expense; e != nil {
		transport := "Transport"
		if e.TransportType != "" {
			transport = fmt.Sprintf("Transport (%s)", e.TransportType)
		}
		other := "Other"
		if e.OtherExpensesDescription != "" {
			other = fmt.Sprintf("Other (%s)", e.OtherExpensesDescription)
		}
		w.line("Accommodation", e.AccommodationDays, e.AccommodationUnitPrice, e.AccommodationTotal)
		w.line("Per diem", e.PerDiemDays, e.PerDiemRate, e.PerDiemTotal)
		w.line(transport, e.TransportDistance, e.TransportUnitPrice, e.TransportTotal)
		w.line("Fuel", e.FuelQuantity, e.FuelUnitPrice, e.FuelTotal)
		w.line(other, "", "", e.OtherExpenses)
		total = e.Total()
	}
	w.heading("Total", "", "", total)
	if m.ActualAmount != nil {
		w.line("Amount paid", "", "", *m.ActualAmount)
	}
	w.line()

	w.heading("Stage", "Signer", "Decision", "Date", "Comment")
	for _, sig := range doc.Signatures {
		label := stageLabels[sig.SignerRole]
		if label == "" {
			label = sig.SignerRole.String()
		}
		w.line(label, name(sig.SignerID), sig.Action.String(), sig.SignedAt.Format(time.DateTime), sig.Comment)
	}

	if m.Status == workflow.StatePaid {
		w.line()
		w.heading("Payment")
		w.line("Method", m.PaymentMethod)
		if m.PaymentDate != nil {
			w.line("Date", m.PaymentDate.Format("2006-01-02"))
		}
		if m.PaymentProofURL != "" {
			w.line("Proof", m.PaymentProofURL)
		}
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to write mission sheet: %w", w.err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "B", "E", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Mission order rendered",
		zap.String("reference", m.Reference),
		zap.Int("signatures", len(doc.Signatures)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

var _ port.DocumentRenderer = (*XLSXRenderer)(nil)
