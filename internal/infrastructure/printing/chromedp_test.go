package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pharmabill/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintParams(t *testing.T) {
	tests := []struct {
		name       string
		req        *RenderRequest
		wantWidth  float64
		wantHeight float64
	}{
		{"A4", &RenderRequest{PaperSize: PaperSizeA4}, 210, 297},
		{"A5", &RenderRequest{PaperSize: PaperSizeA5}, 148, 210},
		{"receipt uses a tall page", &RenderRequest{PaperSize: PaperSizeReceipt80MM}, 80, receiptPageHeightMM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := buildPrintParams(tt.req)
			assert.InDelta(t, mmToInches(tt.wantWidth), params.PaperWidth, 0.01)
			assert.InDelta(t, mmToInches(tt.wantHeight), params.PaperHeight, 0.01)
			assert.True(t, params.PrintBackground)
			assert.False(t, params.DisplayHeaderFooter)
		})
	}
}

func TestBuildPrintParams_MarginsAndFooter(t *testing.T) {
	params := buildPrintParams(&RenderRequest{
		PaperSize:  PaperSizeA4,
		Landscape:  true,
		Margins:    Margins{Top: 20, Right: 15, Bottom: 5, Left: 15},
		FooterHTML: "<span class=\"pageNumber\"></span>",
	})

	assert.True(t, params.Landscape)
	assert.InDelta(t, mmToInches(20), params.MarginTop, 0.001)
	assert.InDelta(t, mmToInches(15), params.MarginLeft, 0.001)
	assert.True(t, params.DisplayHeaderFooter)
	assert.Contains(t, params.FooterTemplate, "pageNumber")
	// the footer needs room
	assert.InDelta(t, mmToInches(10), params.MarginBottom, 0.001)
}

func TestBuildCompleteHTML(t *testing.T) {
	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, buildCompleteHTML(&RenderRequest{HTML: full}))

	fragment := buildCompleteHTML(&RenderRequest{HTML: "<p>hola</p>", Title: "INV <1>"})
	assert.Contains(t, fragment, `<meta charset="UTF-8">`)
	assert.Contains(t, fragment, "<title>INV &lt;1&gt;</title>")
	assert.Contains(t, fragment, "<body><p>hola</p></body>")
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF")))
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
}

func TestMmToInches(t *testing.T) {
	assert.InDelta(t, 1.0, mmToInches(25.4), 0.0001)
	assert.InDelta(t, 8.27, mmToInches(210), 0.01)
}

func TestChromedpRenderer_RejectsBadRequests(t *testing.T) {
	r, err := NewChromedpRenderer(config.ChromeConfig{}, nil)
	require.NoError(t, err)
	defer r.Close()

	tests := []struct {
		name     string
		req      *RenderRequest
		wantCode string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"blank html", &RenderRequest{HTML: "  \n"}, ErrCodeInvalidHTML},
		{"unknown paper", &RenderRequest{HTML: "<p>x</p>", PaperSize: "LETTER"}, ErrCodeInvalidPaperSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)
			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, tt.wantCode, renderErr.Code)
		})
	}
}

func TestChromedpRenderer_BusyWhenAllWorkersTaken(t *testing.T) {
	r, err := NewChromedpRenderer(config.ChromeConfig{MaxWorkers: 1}, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.slots.Acquire(context.Background(), 1))
	defer r.slots.Release(1)

	_, err = r.Render(context.Background(), &RenderRequest{HTML: "<p>x</p>", Timeout: 20 * time.Millisecond})

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeRendererBusy, renderErr.Code)
}

func TestChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(config.ChromeConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultChromeTimeout, r.timeout)
	assert.NoError(t, r.Close())

	remote, err := NewChromedpRenderer(config.ChromeConfig{RemoteURL: "ws://127.0.0.1:9222", Timeout: time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, remote.timeout)
	assert.NoError(t, remote.Close())
}
