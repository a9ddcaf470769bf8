package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PDFContentType is the content type of stored invoice documents
const PDFContentType = "application/pdf"

// InvoiceService renders invoices and debit notes to PDF and keeps them in object storage
type InvoiceService struct {
	clientRepo      client.ClientRepository
	transactionRepo client.TransactionRepository
	renderer        InvoiceRenderer
	storage         DocumentStorage
	cfg             Config
	logger          *zap.Logger
	metrics         *telemetry.BillingMetrics
	now             func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	clientRepo client.ClientRepository,
	transactionRepo client.TransactionRepository,
	renderer InvoiceRenderer,
	storage DocumentStorage,
	cfg Config,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		clientRepo:      clientRepo,
		transactionRepo: transactionRepo,
		renderer:        renderer,
		storage:         storage,
		cfg:             cfg.withDefaults(),
		logger:          nopIfNil(logger),
		now:             time.Now,
	}
}

// SetBillingMetrics sets the billing metrics recorder
func (s *InvoiceService) SetBillingMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// InvoiceKey returns the object key of a transaction's invoice document
func InvoiceKey(pharmacyID uuid.UUID, number string) string {
	return fmt.Sprintf("invoices/%s/%s.pdf", pharmacyID, number)
}

// Generate returns a download link for the invoice of a charge. The PDF is
// rendered and stored on first use, or again when regenerate is set.
func (s *InvoiceService) Generate(ctx context.Context, pharmacyID, transactionID uuid.UUID, regenerate bool) (resp *InvoiceDocumentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate",
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrTransactionID, transactionID.String()))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, "invoice.generate", started, err)
		telemetry.EndSpan(span, err)
	}()

	tx, err := s.transactionRepo.FindByID(ctx, pharmacyID, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.Type.IsCharge() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "only invoices and debit notes have an invoice document")
	}
	if tx.IsCancelled() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "cancelled transactions cannot be invoiced")
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrTxNumber, tx.Number))

	if tx.InvoicePDFPath == "" || regenerate {
		if err := s.render(ctx, tx); err != nil {
			return nil, err
		}
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, tx.InvoicePDFPath, s.cfg.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate invoice download url: %w", err)
	}
	return &InvoiceDocumentResponse{
		TransactionID: tx.ID,
		Number:        tx.Number,
		Key:           tx.InvoicePDFPath,
		URL:           url,
		ExpiresAt:     expiresAt,
	}, nil
}

func (s *InvoiceService) render(ctx context.Context, tx *client.Transaction) error {
	c, err := s.clientRepo.FindByIDForPharmacy(ctx, tx.PharmacyID, tx.ClientID)
	if err != nil {
		return err
	}

	pdf, err := s.renderer.RenderInvoice(ctx, &InvoiceDocument{
		Transaction: tx,
		Client:      c,
		IssuedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", tx.Number, err)
	}

	key := InvoiceKey(tx.PharmacyID, tx.Number)
	if err := s.storage.Upload(ctx, key, pdf, PDFContentType); err != nil {
		return fmt.Errorf("upload invoice %s: %w", tx.Number, err)
	}
	if err := tx.AttachInvoicePDF(key); err != nil {
		return err
	}
	if err := s.transactionRepo.AttachInvoicePDF(ctx, tx.PharmacyID, tx.ID, key); err != nil {
		return err
	}

	logger.Enrich(ctx, s.logger).Info("Invoice document stored",
		zap.String("transaction_number", tx.Number),
		zap.String("key", key),
		zap.Int("size_bytes", len(pdf)))
	return nil
}
