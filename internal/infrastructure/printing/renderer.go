package printing

import (
	"context"
	"time"
)

// PaperSize is an output page format
type PaperSize string

const (
	PaperSizeA4          PaperSize = "A4"           // 210mm x 297mm
	PaperSizeA5          PaperSize = "A5"           // 148mm x 210mm
	PaperSizeReceipt80MM PaperSize = "RECEIPT_80MM" // thermal roll, variable height
)

func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeReceipt80MM:
		return true
	}
	return false
}

// Dimensions returns width and height in millimeters. Roll paper has height 0.
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeReceipt80MM:
		return 80, 0
	default:
		return 210, 297
	}
}

func (p PaperSize) IsReceipt() bool {
	return p == PaperSizeReceipt80MM
}

// Margins are page margins in millimeters
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// DefaultMargins returns 10mm on every side
func DefaultMargins() Margins {
	return Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML      string
	PaperSize PaperSize
	Landscape bool
	Margins   Margins
	// Title is used when HTML is a fragment that needs a document wrapper
	Title      string
	FooterHTML string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer renders HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeRendererBusy     = "RENDERER_BUSY"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
