package printing

import (
	"bytes"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const documentDateLayout = "02/01/2006"

// TemplateEngine renders printable documents with html/template and a set of
// es-AR formatting helpers.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a template engine with the default helpers
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		funcMap: template.FuncMap{
			"money":         formatMoney,
			"decimal":       formatDecimal,
			"date":          formatDate,
			"title":         titleCase,
			"upper":         strings.ToUpper,
			"trim":          strings.TrimSpace,
			"default":       defaultFunc,
			"docType":       documentTypeText,
			"paymentMethod": paymentMethodText,
			"statusText":    paymentStatusText,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse compiles a named template with the engine helpers
func (e *TemplateEngine) Parse(name, content string) (*template.Template, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}
	return tmpl, nil
}

// Execute runs a parsed template against data
func (e *TemplateEngine) Execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// RenderString parses and executes content in one step
func (e *TemplateEngine) RenderString(name, content string, data any) (string, error) {
	tmpl, err := e.Parse(name, content)
	if err != nil {
		return "", err
	}
	return e.Execute(tmpl, data)
}

// FuncMap returns a copy of the template function map
func (e *TemplateEngine) FuncMap() template.FuncMap {
	return maps.Clone(e.funcMap)
}

// =============================================================================
// Template functions
// =============================================================================

// formatMoney renders Money with its symbol, e.g. "$ 1,234.50"
func formatMoney(v any) string {
	switch m := v.(type) {
	case valueobject.Money:
		return m.Formatted()
	case *valueobject.Money:
		if m == nil {
			return ""
		}
		return m.Formatted()
	case decimal.Decimal:
		return m.StringFixed(valueobject.MoneyScale)
	}
	return ""
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// formatDate renders dd/mm/yyyy; nil and zero times render as "-"
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format(documentDateLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format(documentDateLayout)
	}
	return "-"
}

var spanishTitle = cases.Title(language.Spanish)

func titleCase(s string) string {
	return spanishTitle.String(s)
}

func defaultFunc(fallback, v string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func documentTypeText(t client.TransactionType) string {
	switch t {
	case client.TransactionTypeInvoice:
		return "Factura"
	case client.TransactionTypeDebitNote:
		return "Nota de débito"
	case client.TransactionTypeCreditNote:
		return "Nota de crédito"
	case client.TransactionTypePayment:
		return "Recibo de pago"
	}
	return string(t)
}

func paymentMethodText(m client.PaymentMethod) string {
	switch m {
	case client.PaymentMethodCash:
		return "Efectivo"
	case client.PaymentMethodTransfer:
		return "Transferencia"
	case client.PaymentMethodMercadoPago:
		return "Mercado Pago"
	case client.PaymentMethodCreditCard:
		return "Tarjeta de crédito"
	case client.PaymentMethodDebitCard:
		return "Tarjeta de débito"
	case "":
		return "Cuenta corriente"
	}
	return string(m)
}

func paymentStatusText(s client.PaymentStatus) string {
	switch s {
	case client.PaymentStatusPending:
		return "Pendiente"
	case client.PaymentStatusCompleted:
		return "Pagada"
	case client.PaymentStatusCancelled:
		return "Anulada"
	case client.PaymentStatusFailed:
		return "Rechazada"
	case client.PaymentStatusRefunded:
		return "Reintegrada"
	}
	return string(s)
}
