package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/bizledger/internal/ledger"
)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Letterhead identifies the issuing company on printed statements.
type Letterhead struct {
	Name    string
	Address string
	GSTIN   string
}

// PDFExporter renders statements through a Renderer.
type PDFExporter struct {
	renderer   Renderer
	letterhead Letterhead
}

// NewPDFExporter constructs the exporter.
func NewPDFExporter(renderer Renderer, letterhead Letterhead) *PDFExporter {
	return &PDFExporter{renderer: renderer, letterhead: letterhead}
}

var ledgerTemplate = template.Must(template.New("ledger").Funcs(template.FuncMap{
	"amount":  Display,
	"nonzero": DisplayNonZero,
	"date":    func(t time.Time) string { return t.Format(DateLayout) },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Ledger - {{.Statement.Business.Name}}</title>
<style>
body{font-family:Arial,sans-serif;font-size:12px;margin:24px;color:#222;}
.letterhead{text-align:center;margin-bottom:12px;}
.letterhead h1{font-size:18px;margin:0;}
.party{margin:12px 0;}
.period{font-weight:bold;margin-bottom:8px;}
table{width:100%;border-collapse:collapse;}
th,td{border:1px solid #999;padding:4px 6px;}
th{background:#f0f0f0;}
.num{text-align:right;white-space:nowrap;}
.summary td{font-weight:bold;}
</style></head><body>
<div class="letterhead">
<h1>{{.Letterhead.Name}}</h1>
{{with .Letterhead.Address}}<div>{{.}}</div>{{end}}
{{with .Letterhead.GSTIN}}<div>GSTIN: {{.}}</div>{{end}}
</div>
<div class="party">
<div><strong>{{.Statement.Business.Name}}</strong></div>
{{with .Statement.Business.Address}}<div>{{.}}</div>{{end}}
<div>GST: {{.Statement.Business.GSTNumber}}</div>
</div>
<div class="period">Ledger Period: {{date .Statement.Start}} to {{date .Statement.End}}</div>
<table>
<thead><tr><th>Sr No.</th><th>Date</th><th>Particulars</th><th>Vch Type</th><th>Vch No.</th><th>Debit (₹)</th><th>Credit (₹)</th><th>Balance (₹)</th></tr></thead>
<tbody>
<tr class="summary"><td colspan="7">Opening Balance</td><td class="num">{{amount .Statement.OpeningBalance}}</td></tr>
{{range .Statement.Entries}}<tr><td>{{.Serial}}</td><td>{{date .Date}}</td><td>{{.Particulars}}</td><td>{{.VoucherType}}</td><td>{{.VoucherNumber}}</td><td class="num">{{nonzero .Debit}}</td><td class="num">{{nonzero .Credit}}</td><td class="num">{{amount .Balance}}</td></tr>
{{end}}<tr class="summary"><td colspan="7">Closing Balance</td><td class="num">{{amount .Statement.ClosingBalance}}</td></tr>
<tr class="summary"><td colspan="5">Total</td><td class="num">{{amount .Statement.TotalDebit}}</td><td class="num">{{amount .Statement.TotalCredit}}</td><td class="num">{{amount .Statement.ClosingBalance}}</td></tr>
</tbody></table>
</body></html>`))

// RenderHTML builds the printable document for stmt.
func (p *PDFExporter) RenderHTML(stmt ledger.Statement) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Letterhead Letterhead
		Statement  ledger.Statement
	}{p.letterhead, stmt}
	if err := ledgerTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("ledger pdf: template: %w", err)
	}
	return buf.String(), nil
}

// RenderLedger returns stmt as a PDF document.
func (p *PDFExporter) RenderLedger(ctx context.Context, stmt ledger.Statement) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("pdf exporter not initialised")
	}
	html, err := p.RenderHTML(stmt)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, html)
}
