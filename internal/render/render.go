// Package render turns a recorded time/frequency heatmap into an image:
// rows are capture time (top to bottom), columns are frequency, color is
// magnitude on a percentile-derived power scale.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/roman-kulish/spectrum-monitor/internal/record"
)

const (
	defaultPlotWidth  = 1024
	defaultPlotHeight = 512

	topBorder    = 40
	leftBorder   = 80
	bottomBorder = 40
	rightBorder  = 40

	fontSize       = 12.0
	fontDPI        = 96.0
	tickMarkLength = 5
	pixelsPerLabel = 150
)

var (
	backgroundColor = color.RGBA{R: 24, G: 24, B: 24, A: 255}
	labelColor      = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	tickColor       = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Config holds the renderer options.
type Config struct {
	Theme      ColorTheme // Color scheme (ClassicTheme if empty)
	PlotWidth  int        // Plot area width in pixels (default 1024)
	PlotHeight int        // Plot area height in pixels (default 512)
}

// Renderer renders heatmap snapshots.
type Renderer struct {
	cfg  Config
	font *truetype.Font
	face font.Face
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Theme == "" {
		cfg.Theme = ClassicTheme
	}
	if cfg.PlotWidth <= 0 {
		cfg.PlotWidth = defaultPlotWidth
	}
	if cfg.PlotHeight <= 0 {
		cfg.PlotHeight = defaultPlotHeight
	}

	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{
		cfg:  cfg,
		font: f,
		face: truetype.NewFace(f, &truetype.Options{Size: fontSize, DPI: fontDPI}),
	}, nil
}

// Render draws the heatmap with frequency labels along the top and elapsed
// time labels along the left.
func (r *Renderer) Render(h *record.Heatmap) (image.Image, error) {
	if len(h.Rows) == 0 {
		return nil, fmt.Errorf("heatmap has no rows")
	}
	cols := len(h.Frequencies)
	rows := len(h.Rows)

	bounds := r.powerBounds(h)
	mapper := NewColorMapper(r.cfg.Theme, bounds)

	plotW := r.cfg.PlotWidth
	plotH := r.cfg.PlotHeight
	img := image.NewRGBA(image.Rect(0, 0, leftBorder+plotW+rightBorder, topBorder+plotH+bottomBorder))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	// Nearest-neighbor sampling of the data grid into the plot area.
	for y := 0; y < plotH; y++ {
		row := h.Rows[y*rows/plotH]
		for x := 0; x < plotW; x++ {
			img.Set(leftBorder+x, topBorder+y, mapper.GetColor(row[x*cols/plotW]))
		}
	}

	if err := r.annotate(img, h, bounds); err != nil {
		return nil, err
	}
	return img, nil
}

func (r *Renderer) powerBounds(h *record.Heatmap) PowerBounds {
	hist := NewPowerHistogram()
	for _, row := range h.Rows {
		for _, m := range row {
			hist.Update(m)
		}
	}
	return hist.Bounds()
}

func (r *Renderer) annotate(img *image.RGBA, h *record.Heatmap, bounds PowerBounds) error {
	c := freetype.NewContext()
	c.SetDPI(fontDPI)
	c.SetFont(r.font)
	c.SetFontSize(fontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(labelColor))

	plotW := r.cfg.PlotWidth
	plotH := r.cfg.PlotHeight

	// Frequency scale along the top edge.
	freqLabels := max(2, plotW/pixelsPerLabel)
	span := h.Frequencies[len(h.Frequencies)-1] - h.Frequencies[0]
	for i := 0; i <= freqLabels; i++ {
		frac := float64(i) / float64(freqLabels)
		x := leftBorder + int(frac*float64(plotW-1))
		label := formatFrequency(h.Frequencies[0] + frac*span)

		w := font.MeasureString(r.face, label).Round()
		if _, err := c.DrawString(label, freetype.Pt(clampLabelX(x-w/2, img.Bounds().Dx(), w), topBorder-12)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
		drawVerticalTick(img, x, topBorder-tickMarkLength, topBorder)
	}

	// Elapsed-time scale along the left edge.
	timeLabels := max(2, plotH/pixelsPerLabel)
	last := h.Elapsed[len(h.Elapsed)-1]
	for i := 0; i <= timeLabels; i++ {
		frac := float64(i) / float64(timeLabels)
		y := topBorder + int(frac*float64(plotH-1))
		label := formatElapsed(time.Duration(frac * float64(last)))

		if _, err := c.DrawString(label, freetype.Pt(8, y+5)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
		drawHorizontalTick(img, leftBorder-tickMarkLength, leftBorder, y)
	}

	// Summary line along the bottom edge.
	summary := fmt.Sprintf("%d sweeps  %s - %s  scale %.0f..%.0f dBm",
		len(h.Rows),
		formatFrequency(h.Frequencies[0]),
		formatFrequency(h.Frequencies[len(h.Frequencies)-1]),
		bounds.Min, bounds.Max)
	if h.Dropped > 0 {
		summary = fmt.Sprintf("%s  (%d rows evicted)", summary, h.Dropped)
	}
	if _, err := c.DrawString(summary, freetype.Pt(leftBorder, topBorder+plotH+25)); err != nil {
		return fmt.Errorf("drawing summary: %w", err)
	}

	return nil
}

func drawVerticalTick(img *image.RGBA, x, y0, y1 int) {
	for y := y0; y < y1; y++ {
		img.Set(x, y, tickColor)
	}
}

func drawHorizontalTick(img *image.RGBA, x0, x1, y int) {
	for x := x0; x < x1; x++ {
		img.Set(x, y, tickColor)
	}
}

func clampLabelX(x, imgWidth, labelWidth int) int {
	if x < 0 {
		return 0
	}
	if x+labelWidth > imgWidth {
		return imgWidth - labelWidth
	}
	return x
}

func formatFrequency(hz float64) string {
	switch {
	case hz >= 1e9:
		return fmt.Sprintf("%.3gGHz", hz/1e9)
	case hz >= 1e6:
		return fmt.Sprintf("%.3gMHz", hz/1e6)
	case hz >= 1e3:
		return fmt.Sprintf("%.3gkHz", hz/1e3)
	default:
		return fmt.Sprintf("%.0fHz", hz)
	}
}

func formatElapsed(d time.Duration) string {
	secs := int(math.Round(d.Seconds()))
	if secs >= 3600 {
		return fmt.Sprintf("%dh%02dm", secs/3600, (secs%3600)/60)
	}
	if secs >= 60 {
		return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
