package printing

import (
	"context"
	"html/template"

	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/client"
	"go.uber.org/zap"
)

var _ billingapp.InvoiceRenderer = (*InvoicePDFRenderer)(nil)

// invoiceView is the data the invoice template is executed with
type invoiceView struct {
	Tx          *client.Transaction
	Client      *client.Client
	Overdue     bool
	HasTax      bool
	HasDiscount bool
}

// InvoicePDFRenderer renders charges to PDF through the invoice template
type InvoicePDFRenderer struct {
	engine    *TemplateEngine
	tmpl      *template.Template
	pdf       PDFRenderer
	paperSize PaperSize
	logger    *zap.Logger
}

// InvoiceRendererOption configures InvoicePDFRenderer
type InvoiceRendererOption func(*InvoicePDFRenderer)

// WithPaperSize prints on a different paper size, e.g. a receipt roll
func WithPaperSize(size PaperSize) InvoiceRendererOption {
	return func(r *InvoicePDFRenderer) {
		r.paperSize = size
	}
}

// NewInvoicePDFRenderer creates the renderer. The built-in template is parsed
// once here, so a broken template fails at startup.
func NewInvoicePDFRenderer(pdf PDFRenderer, logger *zap.Logger, opts ...InvoiceRendererOption) (*InvoicePDFRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := NewTemplateEngine()
	tmpl, err := engine.Parse("invoice", defaultInvoiceTemplate)
	if err != nil {
		return nil, err
	}
	r := &InvoicePDFRenderer{
		engine:    engine,
		tmpl:      tmpl,
		pdf:       pdf,
		paperSize: PaperSizeA4,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RenderHTML executes the invoice template
func (r *InvoicePDFRenderer) RenderHTML(doc *billingapp.InvoiceDocument) (string, error) {
	if doc == nil || doc.Transaction == nil || doc.Client == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "invoice document needs a transaction and a client", nil)
	}
	tx := doc.Transaction
	return r.engine.Execute(r.tmpl, invoiceView{
		Tx:          tx,
		Client:      doc.Client,
		Overdue:     tx.IsOverdue(doc.IssuedAt),
		HasTax:      tx.TaxAmount.IsPositive(),
		HasDiscount: tx.DiscountAmount.IsPositive(),
	})
}

// RenderInvoice renders the document to PDF bytes
func (r *InvoicePDFRenderer) RenderInvoice(ctx context.Context, doc *billingapp.InvoiceDocument) ([]byte, error) {
	html, err := r.RenderHTML(doc)
	if err != nil {
		return nil, err
	}

	margins := DefaultMargins()
	if r.paperSize.IsReceipt() {
		margins = Margins{Top: 2, Right: 2, Bottom: 2, Left: 2}
	}
	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:       html,
		PaperSize:  r.paperSize,
		Margins:    margins,
		Title:      doc.Transaction.Number,
		FooterHTML: invoiceFooterTemplate,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Invoice rendered",
		zap.String("transaction_number", doc.Transaction.Number),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result.PDFData, nil
}
