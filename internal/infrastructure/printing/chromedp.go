package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pharmabill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultChromeWorkers = 2
	// receiptPageHeightMM is tall enough for any receipt; Chrome trims to content
	receiptPageHeightMM = 3000
)

// ChromedpRenderer prints HTML to PDF with headless Chrome. One browser
// allocator is shared; each render opens its own tab, and at most
// MaxWorkers tabs print at the same time.
type ChromedpRenderer struct {
	timeout     time.Duration
	logger      *zap.Logger
	slots       *semaphore.Weighted
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates the renderer. With RemoteURL set it attaches to
// a running Chrome devtools endpoint; otherwise it launches a local browser
// on first use.
func NewChromedpRenderer(cfg config.ChromeConfig, logger *zap.Logger) (*ChromedpRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultChromeTimeout
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = defaultChromeWorkers
	}

	r := &ChromedpRenderer{
		timeout: timeout,
		logger:  logger,
		slots:   semaphore.NewWeighted(int64(workers)),
	}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r, nil
}

// Render converts HTML content to PDF
func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if req == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if req.PaperSize == "" {
		req.PaperSize = PaperSizeA4
	}
	if !req.PaperSize.IsValid() {
		return nil, NewRenderError(ErrCodeInvalidPaperSize, "invalid paper size: "+string(req.PaperSize), nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, NewRenderError(ErrCodeRendererBusy, "no free renderer within "+timeout.String(), err)
	}
	defer r.slots.Release(1)

	started := time.Now()
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()
	// the tab derives from the allocator, so the request deadline is bridged in
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	content := buildCompleteHTML(req)
	params := buildPrintParams(req)

	var pdfData []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, content).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	result := &RenderResult{
		PDFData:        pdfData,
		PageCount:      estimatePageCount(pdfData),
		RenderDuration: time.Since(started),
	}
	r.logger.Debug("PDF rendered",
		zap.Int("bytes", len(pdfData)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result, nil
}

// buildPrintParams maps the request onto Chrome's print options (inches)
func buildPrintParams(req *RenderRequest) *page.PrintToPDFParams {
	width, height := req.PaperSize.Dimensions()
	if req.PaperSize.IsReceipt() {
		height = receiptPageHeightMM
	}

	params := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(float64(width))).
		WithPaperHeight(mmToInches(float64(height))).
		WithMarginTop(mmToInches(float64(req.Margins.Top))).
		WithMarginRight(mmToInches(float64(req.Margins.Right))).
		WithMarginBottom(mmToInches(float64(req.Margins.Bottom))).
		WithMarginLeft(mmToInches(float64(req.Margins.Left))).
		WithLandscape(req.Landscape)

	if req.FooterHTML != "" {
		params = params.
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate("<span></span>").
			WithFooterTemplate(req.FooterHTML)
		if req.Margins.Bottom < 10 {
			params = params.WithMarginBottom(mmToInches(10))
		}
	}
	return params
}

// buildCompleteHTML wraps a fragment in a UTF-8 document; full documents pass through
func buildCompleteHTML(req *RenderRequest) string {
	lower := strings.ToLower(req.HTML)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return req.HTML
	}

	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	if req.Title != "" {
		buf.WriteString("<title>")
		buf.WriteString(html.EscapeString(req.Title))
		buf.WriteString("</title>")
	}
	buf.WriteString("</head><body>")
	buf.WriteString(req.HTML)
	buf.WriteString("</body></html>")
	return buf.String()
}

// Close shuts down the browser allocator
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// estimatePageCount counts page objects; the parent /Pages node is subtracted
func estimatePageCount(pdfData []byte) int {
	count := bytes.Count(pdfData, []byte("/Type /Page")) - bytes.Count(pdfData, []byte("/Type /Pages"))
	return max(count, 1)
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
