// Package plots draws the evaluation figures: per-genome interaction line
// plots and per-class energy histograms.
package plots

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/yech1990/mrri/internal/intarna"
	"github.com/yech1990/mrri/internal/results"
)

var (
	grey   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	cyan   = color.RGBA{G: 191, B: 191, A: 255}
	red    = color.RGBA{R: 220, A: 255}
	green  = color.RGBA{G: 150, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
	yellow = color.RGBA{R: 230, G: 210, A: 255}
	black  = color.RGBA{A: 255}
	blue   = color.RGBA{R: 30, G: 90, B: 220, A: 255}
)

// Kind tells what a segment stands for.
type Kind int

const (
	KindCDS Kind = iota
	KindUTR
	KindInteraction
	KindCMHit
	KindSite
)

var kindColors = map[Kind]color.Color{KindCDS: grey, KindUTR: cyan, KindInteraction: red, KindCMHit: green, KindSite: blue}
var kindNames = map[Kind]string{KindCDS: "CDS", KindUTR: "UTR", KindInteraction: "Interaction", KindCMHit: "CM hit", KindSite: "Motif site"}

// Segment is a horizontal line from From to To.
type Segment struct {
	From float64
	To   float64
	Kind Kind
}

// Span is a half-open range of sequence offsets.
type Span struct {
	From int
	To   int
}

// Options configure the line plot.
type Options struct {
	ExtraBases    int
	ExtraBasesROI int

	// CMHits adds the CM hit of every genome on the 3' panel.
	CMHits bool
	// QueryBox marks the 3' region searched in the second MRRI mode, given
	// as bases before the 3' end.
	QueryBox   bool
	QueryFrom  int
	QueryTo    int
	// Sites5 and Sites3 hold motif sites per genome ID, as offsets into
	// seq5 and seq3.
	Sites5     map[string][]Span
	Sites3     map[string][]Span
	Title      string
	WidthInch  float64
	HeightInch float64
}

// Segments5 returns the 5' panel segments of row, in bases after the 5'
// end: the UTR extended into the CDS region of interest, the UTR alone and
// every interaction.
func Segments5(row results.Row, o Options) []Segment {
	segs := []Segment{
		{0, float64(row.UTR5Len + o.ExtraBasesROI), KindCDS},
		{0, float64(row.UTR5Len), KindUTR},
	}
	tidx := -(len(row.Seq5) - o.ExtraBases)
	for _, p := range row.PredictionsT {
		segs = append(segs, Segment{
			From: float64(intarna.ToOffset(p.Start, tidx)),
			To:   float64(intarna.ToOffset(p.End, tidx) + 1),
			Kind: KindInteraction,
		})
	}
	for _, s := range o.Sites5[row.ID] {
		segs = append(segs, Segment{float64(s.From), float64(s.To), KindSite})
	}
	return segs
}

// Segments3 returns the 3' panel segments of row, in negative bases before
// the 3' end.
func Segments3(row results.Row, o Options) []Segment {
	segs := []Segment{
		{0, -float64(row.UTR3Len + o.ExtraBasesROI), KindCDS},
		{0, -float64(row.UTR3Len), KindUTR},
	}
	n := len(row.Seq3)
	qidx := -o.ExtraBases
	for _, p := range row.PredictionsQ {
		segs = append(segs, Segment{
			From: -float64(n - intarna.ToOffset(p.Start, qidx)),
			To:   -float64(n - intarna.ToOffset(p.End, qidx) - 1),
			Kind: KindInteraction,
		})
	}
	if o.CMHits && row.CMHit != nil {
		segs = append(segs, Segment{
			From: -float64(row.UTR3Len - row.CMHit.From + 1),
			To:   -float64(row.UTR3Len - row.CMHit.To),
			Kind: KindCMHit,
		})
	}
	for _, s := range o.Sites3[row.ID] {
		segs = append(segs, Segment{-float64(n - s.From), -float64(n - s.To), KindSite})
	}
	return segs
}

func addSegments(p *plot.Plot, segs []Segment, y float64, legend map[Kind]bool) error {
	for _, s := range segs {
		l, err := plotter.NewLine(plotter.XYs{{X: s.From, Y: y}, {X: s.To, Y: y}})
		if err != nil {
			return err
		}
		l.LineStyle.Color = kindColors[s.Kind]
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
		if !legend[s.Kind] {
			p.Legend.Add(kindNames[s.Kind], l)
			legend[s.Kind] = true
		}
	}
	return nil
}

func box(from, to, top float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{
		{X: from, Y: -1}, {X: to, Y: -1}, {X: to, Y: top}, {X: from, Y: top}, {X: from, Y: -1},
	})
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = black
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return l, nil
}

// LinePlot draws one line per genome on two stacked panels, the 5' end on
// top and the 3' end below, and saves them as PNG at path.
func LinePlot(rows []results.Row, path string, o Options) error {
	side5 := plot.New()
	side3 := plot.New()
	side5.Title.Text = o.Title
	if side5.Title.Text == "" {
		side5.Title.Text = "Interaction Lineplot"
	}
	side5.X.Label.Text = "Bases after 5' end"
	side3.X.Label.Text = "Bases before 3' end"
	side5.Y.Label.Text = "Index"
	side3.Y.Label.Text = "Index"
	side5.Legend.Top = true
	side3.Legend.Top = true
	side3.Legend.Left = true

	legend5, legend3 := map[Kind]bool{}, map[Kind]bool{}
	for i, row := range rows {
		if err := addSegments(side5, Segments5(row, o), float64(i), legend5); err != nil {
			return err
		}
		if err := addSegments(side3, Segments3(row, o), float64(i), legend3); err != nil {
			return err
		}
	}
	if o.QueryBox {
		b, err := box(-float64(o.QueryFrom), -float64(o.QueryTo), float64(len(rows)))
		if err != nil {
			return err
		}
		side3.Add(b)
	}

	w, h := o.WidthInch, o.HeightInch
	if w == 0 || h == 0 {
		w, h = 16, 9
	}
	img := vgimg.New(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadX: vg.Millimeter, PadY: 4 * vg.Millimeter, PadTop: 2 * vg.Millimeter, PadBottom: 2 * vg.Millimeter, PadLeft: 2 * vg.Millimeter, PadRight: 2 * vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{{side5}, {side3}}, tiles, dc)
	side5.Draw(canvases[0][0])
	side3.Draw(canvases[1][0])

	return savePNG(img, path)
}

func savePNG(img *vgimg.Canvas, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(file); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
