package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0

	defaultPlotWidth  = 1200
	defaultPlotHeight = 500

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 60
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

var (
	depthColor   = color.RGBA{R: 0x1f, G: 0x4e, B: 0x9c, A: 0xff}
	headingColor = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	markerColor  = color.RGBA{R: 0xc0, G: 0x30, B: 0x30, A: 0xff}
	gridColor    = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Top padding
	Left   int // Space for depth scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for profile visualization
type RenderConfig struct {
	FontFile       string
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location

	PlotWidth  int
	PlotHeight int

	DrawHeading bool
	DrawEvents  bool

	BorderConfig BorderConfig
}

// ProfileRenderer draws a depth-over-time plot of one dive session.
type ProfileRenderer struct {
	config RenderConfig
}

// NewProfileRenderer creates a renderer with the given configuration.
func NewProfileRenderer(config RenderConfig) (*ProfileRenderer, error) {
	if config.FontFile == "" {
		return nil, fmt.Errorf("font file is required")
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.PlotWidth == 0 {
		config.PlotWidth = defaultPlotWidth
	}
	if config.PlotHeight == 0 {
		config.PlotHeight = defaultPlotHeight
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &ProfileRenderer{config: config}, nil
}

// Render creates an annotated image of the dive profile.
func (r *ProfileRenderer) Render(profile *DiveProfile) (*image.RGBA, error) {
	fullWidth := r.config.PlotWidth + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := r.config.PlotHeight + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+r.config.PlotWidth,
		r.config.BorderConfig.Top+r.config.PlotHeight,
	)

	ann, err := newAnnotator(r.config)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, area, profile); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	if r.config.DrawEvents {
		r.renderMarkers(img, area, profile)
	}
	if r.config.DrawHeading {
		r.renderHeading(img, area, profile)
	}
	r.renderDepth(img, area, profile)

	return img, nil
}

// renderDepth draws the depth trace, connecting consecutive samples that
// both carry a reading.
func (r *ProfileRenderer) renderDepth(img *image.RGBA, area image.Rectangle, profile *DiveProfile) {
	prevX, prevY := -1, -1
	for _, s := range profile.Samples {
		if s.Depth == nil {
			prevX, prevY = -1, -1
			continue
		}

		x := r.timeToX(area, profile, s.Timestamp)
		y := area.Min.Y + int(*s.Depth/profile.DepthMax*float64(area.Dy()-1))

		if prevX >= 0 {
			drawLine(img, prevX, prevY, x, y, depthColor)
		} else {
			img.Set(x, y, depthColor)
		}
		prevX, prevY = x, y
	}
}

// renderHeading draws the heading trace scaled over the full plot height,
// 0 degrees at the top, 360 at the bottom. Wrap-arounds are left unconnected.
func (r *ProfileRenderer) renderHeading(img *image.RGBA, area image.Rectangle, profile *DiveProfile) {
	prevX, prevY := -1, -1
	prevHeading := 0.0
	for _, s := range profile.Samples {
		if s.Heading == nil {
			prevX, prevY = -1, -1
			continue
		}

		heading := math.Mod(*s.Heading+360, 360)
		x := r.timeToX(area, profile, s.Timestamp)
		y := area.Min.Y + int(heading/360*float64(area.Dy()-1))

		if prevX >= 0 && math.Abs(heading-prevHeading) < 180 {
			drawLine(img, prevX, prevY, x, y, headingColor)
		} else {
			img.Set(x, y, headingColor)
		}
		prevX, prevY = x, y
		prevHeading = heading
	}
}

// renderMarkers draws a vertical line per dive event.
func (r *ProfileRenderer) renderMarkers(img *image.RGBA, area image.Rectangle, profile *DiveProfile) {
	for _, m := range profile.Markers {
		x := r.timeToX(area, profile, m.Timestamp)
		for y := area.Min.Y; y < area.Max.Y; y += 3 {
			img.Set(x, y, markerColor)
		}
	}
}

func (r *ProfileRenderer) timeToX(area image.Rectangle, profile *DiveProfile, t time.Time) int {
	span := profile.Duration().Seconds()
	if span <= 0 {
		return area.Min.X
	}

	ratio := t.Sub(profile.TimestampStart).Seconds() / span
	ratio = math.Max(0, math.Min(1, ratio))
	return area.Min.X + int(ratio*float64(area.Dx()-1))
}

// drawLine is a simple Bresenham segment.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Internal annotator implementation

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontFile)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, profile *DiveProfile) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawDepthScale(img, area, profile); err != nil {
		return fmt.Errorf("drawing depth scale: %w", err)
	}
	if err := a.drawTimeScale(img, area, profile); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, profile); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawDepthScale(img *image.RGBA, area image.Rectangle, profile *DiveProfile) error {
	depthStep := calculateNiceDepthStep(profile.DepthMax, area.Dy())

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for depth := 0.0; depth <= profile.DepthMax; depth += depthStep {
		y := area.Min.Y + int(depth/profile.DepthMax*float64(area.Dy()-1))

		// Gridline across the plot, tick mark into the border
		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.1f m", depth)
		textY := y + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing depth label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, profile *DiveProfile) error {
	duration := profile.Duration()
	if duration <= 0 {
		return nil
	}
	timeStep := calculateNiceTimeStep(duration, area.Dx())

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := area.Min.Y - fontHeight/2

	for offset := time.Duration(0); offset <= duration; offset += timeStep {
		ratio := offset.Seconds() / duration.Seconds()
		x := area.Min.X + int(ratio*float64(area.Dx()-1))

		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := profile.TimestampStart.Add(offset).In(a.config.Location).Format(a.config.TimeFormat)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, profile *DiveProfile) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Dive: %s - %s",
		profile.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		profile.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Max depth: %.1f m", profile.DepthMax))
	if a.config.DrawHeading {
		sb.WriteString("; gray trace: heading 0-360")
	}

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.BorderConfig.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.BorderConfig.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

// Helper functions

func calculateNiceDepthStep(maxDepth float64, height int) float64 {
	steps := []float64{0.1, 0.2, 0.5, 1, 2, 5, 10}

	desiredSteps := float64(height) / 100
	targetStep := maxDepth / desiredSteps

	for _, step := range steps {
		if step >= targetStep && maxDepth/step >= 2 {
			return step
		}
	}
	return maxDepth / 2
}

func calculateNiceTimeStep(duration time.Duration, width int) time.Duration {
	niceIntervals := []time.Duration{
		time.Second,
		5 * time.Second,
		15 * time.Second,
		30 * time.Second,
		time.Minute,
		5 * time.Minute,
		10 * time.Minute,
		30 * time.Minute,
		time.Hour,
	}

	desiredSteps := float64(width) / pixelsPerLabel
	targetStep := time.Duration(duration.Seconds() / desiredSteps * float64(time.Second))

	for _, interval := range niceIntervals {
		if interval >= targetStep {
			return interval
		}
	}
	return 2 * time.Hour
}
