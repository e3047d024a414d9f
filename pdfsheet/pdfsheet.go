// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pdfsheet reads the first page of a match sheet PDF and serves its
// ruled tables as cells.
package pdfsheet

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/format"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/ttbt-io/volleysheet/sheet"
)

var (
	ErrNotPDF = errors.New("not a PDF document")
	ErrNoText = errors.New("no text in region")
)

// RulingTolerance is how far outside a region a ruling line may lie and
// still bound its cells.
const RulingTolerance = 3.0

// Page is the text layer and the ruling lines of one PDF page. Fragment and
// ruling coordinates are PDF user space (origin bottom-left); regions use a
// top-left origin.
type Page struct {
	Width     float64
	Height    float64
	Fragments []text.TextFragment
	Rulings   []graphicsstate.ExtractedLine
}

var _ sheet.TableReader = (*Page)(nil)

// NewPage wraps already extracted fragments and ruling lines.
func NewPage(width, height float64, fragments []text.TextFragment, rulings ...graphicsstate.ExtractedLine) *Page {
	return &Page{
		Width:     width,
		Height:    height,
		Fragments: fragments,
		Rulings:   rulings,
	}
}

// Open reads the first page of the PDF at path.
func Open(path string) (*Page, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader.Open: %w", err)
	}
	defer r.Close()

	n, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("PageCount: %w", err)
	}
	if n == 0 {
		return nil, errors.New("document has no pages")
	}
	pg, err := r.GetPage(0)
	if err != nil {
		return nil, fmt.Errorf("GetPage: %w", err)
	}
	w, err := pg.Width()
	if err != nil {
		return nil, fmt.Errorf("page width: %w", err)
	}
	h, err := pg.Height()
	if err != nil {
		return nil, fmt.Errorf("page height: %w", err)
	}
	frags, err := r.ExtractTextFragments(pg)
	if err != nil {
		return nil, fmt.Errorf("ExtractTextFragments: %w", err)
	}
	contents, err := pg.Contents()
	if err != nil {
		return nil, fmt.Errorf("page contents: %w", err)
	}
	var data []byte
	for _, obj := range contents {
		s, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		b, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("content stream: %w", err)
		}
		data = append(data, b...)
		data = append(data, '\n')
	}
	rulings, err := extractRulings(data)
	if err != nil {
		return nil, fmt.Errorf("rulings: %w", err)
	}
	return NewPage(w, h, frags, rulings...), nil
}

// OpenBytes reads the first page of an in-memory PDF. The document is
// written to a temporary file for the duration of the call.
func OpenBytes(data []byte) (*Page, error) {
	if format.DetectFromMagic(data) != format.PDF {
		return nil, ErrNotPDF
	}
	f, err := os.CreateTemp("", "volleysheet-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return Open(f.Name())
}

// extractRulings returns the horizontal and vertical strokes of a content
// stream. Rectangles contribute their edges.
func extractRulings(data []byte) ([]graphicsstate.ExtractedLine, error) {
	if len(data) == 0 {
		return nil, nil
	}
	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return nil, err
	}
	gl := ge.GetGridLines()
	out := append(gl.Horizontals, gl.Verticals...)
	for _, rect := range ge.GetFilteredRectangles() {
		out = append(out, rectEdges(rect.BBox)...)
	}
	return out, nil
}

func rectEdges(b model.BBox) []graphicsstate.ExtractedLine {
	x0, y0, x1, y1 := b.X, b.Y, b.X+b.Width, b.Y+b.Height
	return []graphicsstate.ExtractedLine{
		HLine(x0, x1, y0),
		HLine(x0, x1, y1),
		VLine(x0, y0, y1),
		VLine(x1, y0, y1),
	}
}

// HLine is a horizontal ruling from x0 to x1 at height y.
func HLine(x0, x1, y float64) graphicsstate.ExtractedLine {
	return graphicsstate.ExtractedLine{
		Start:        model.Point{X: x0, Y: y},
		End:          model.Point{X: x1, Y: y},
		IsHorizontal: true,
		BBox:         model.BBox{X: math.Min(x0, x1), Y: y, Width: math.Abs(x1 - x0)},
	}
}

// VLine is a vertical ruling from y0 to y1 at abscissa x.
func VLine(x, y0, y1 float64) graphicsstate.ExtractedLine {
	return graphicsstate.ExtractedLine{
		Start:      model.Point{X: x, Y: y0},
		End:        model.Point{X: x, Y: y1},
		IsVertical: true,
		BBox:       model.BBox{X: x, Y: math.Min(y0, y1), Height: math.Abs(y1 - y0)},
	}
}

// box is a fragment in top-left coordinates.
type box struct {
	frag                     text.TextFragment
	left, top, right, bottom float64
	cx, cy                   float64
}

func (p *Page) box(f text.TextFragment) box {
	h := f.Height
	if h <= 0 {
		h = f.FontSize
	}
	b := box{
		frag:   f,
		left:   f.X,
		right:  f.X + f.Width,
		top:    p.Height - f.Y - h,
		bottom: p.Height - f.Y,
	}
	b.cx = (b.left + b.right) / 2
	b.cy = (b.top + b.bottom) / 2
	return b
}

// inRegion returns the fragments whose center lies inside r, top to bottom
// and left to right.
func (p *Page) inRegion(r sheet.Region) []box {
	var out []box
	for _, f := range p.Fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		b := p.box(f)
		if r.Contains(b.cx, b.cy) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].cy != out[j].cy {
			return out[i].cy < out[j].cy
		}
		return out[i].left < out[j].left
	})
	return out
}

// ReadCell returns the text inside r, top to bottom and left to right.
func (p *Page) ReadCell(r sheet.Region) string {
	boxes := p.inRegion(r)
	parts := make([]string, 0, len(boxes))
	for _, b := range boxes {
		parts = append(parts, strings.TrimSpace(b.frag.Text))
	}
	return strings.Join(parts, " ")
}

// ReadRegion returns the cells of the table inside r. When the region is
// ruled, every cell of the ruled grid is kept, empty or not. Otherwise the
// table is inferred from text alignment.
func (p *Page) ReadRegion(r sheet.Region) (sheet.RawTable, error) {
	boxes := p.inRegion(r)
	if len(boxes) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoText, r)
	}
	if g := p.gridIn(r); g != nil {
		return p.fillGrid(g, boxes), nil
	}
	if t := p.alignedTable(boxes); t != nil {
		return t, nil
	}
	return p.lineTable(boxes), nil
}

// gridIn runs the grid detector on the rulings clipped to r.
func (p *Page) gridIn(r sheet.Region) *tables.GridHypothesis {
	if len(p.Rulings) == 0 {
		return nil
	}
	left, right := r.Left-RulingTolerance, r.Right+RulingTolerance
	bottom, top := p.Height-r.Bottom-RulingTolerance, p.Height-r.Top+RulingTolerance

	var hs, vs []graphicsstate.ExtractedLine
	for _, l := range p.Rulings {
		x0, x1 := math.Min(l.Start.X, l.End.X), math.Max(l.Start.X, l.End.X)
		y0, y1 := math.Min(l.Start.Y, l.End.Y), math.Max(l.Start.Y, l.End.Y)
		switch {
		case l.IsHorizontal:
			y := (y0 + y1) / 2
			if y < bottom || y > top || x1 < left || x0 > right {
				continue
			}
			hs = append(hs, HLine(math.Max(x0, r.Left), math.Min(x1, r.Right), y))
		case l.IsVertical:
			x := (x0 + x1) / 2
			if x < left || x > right || y1 < bottom || y0 > top {
				continue
			}
			vs = append(vs, VLine(x, math.Max(y0, p.Height-r.Bottom), math.Min(y1, p.Height-r.Top)))
		}
	}
	hyps := tables.NewGridDetector().DetectFromLines(hs, vs)
	if len(hyps) == 0 {
		return nil
	}
	sort.SliceStable(hyps, func(i, j int) bool { return hyps[i].Confidence > hyps[j].Confidence })
	return hyps[0]
}

// fillGrid assigns each fragment to the ruled cell holding its center.
// Fragments outside the grid are dropped.
func (p *Page) fillGrid(g *tables.GridHypothesis, boxes []box) sheet.RawTable {
	rows, cols := len(g.HorizontalLines)-1, len(g.VerticalLines)-1
	table := make(sheet.RawTable, rows)
	for i := range table {
		table[i] = make([]string, cols)
	}
	for _, b := range boxes {
		y := p.Height - b.cy
		i := sort.Search(rows, func(i int) bool { return g.HorizontalLines[i+1] < y })
		j := sort.Search(cols, func(j int) bool { return g.VerticalLines[j+1] > b.cx })
		if i >= rows || j >= cols || y > g.HorizontalLines[0] || b.cx < g.VerticalLines[0] {
			continue
		}
		appendCell(table[i], j, b.frag.Text)
	}
	return table
}

// alignedTable uses tabula's geometric detector on an unruled region and
// keeps the largest table found.
func (p *Page) alignedTable(boxes []box) sheet.RawTable {
	mp := model.NewPage(p.Width, p.Height)
	for _, b := range boxes {
		f := b.frag
		h := f.Height
		if h <= 0 {
			h = f.FontSize
		}
		mp.RawText = append(mp.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: h},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	found, err := tables.NewGeometricDetector().Detect(mp)
	if err != nil || len(found) == 0 {
		return nil
	}
	best := found[0]
	for _, t := range found[1:] {
		if len(t.Rows)*rowWidth(t) > len(best.Rows)*rowWidth(best) {
			best = t
		}
	}
	out := make(sheet.RawTable, len(best.Rows))
	for i, row := range best.Rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = strings.TrimSpace(c.Text)
		}
	}
	return out
}

func rowWidth(t *model.Table) int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// lineTable is the last resort: one row per text line, one cell per row.
func (p *Page) lineTable(boxes []box) sheet.RawTable {
	frags := make([]text.TextFragment, len(boxes))
	for i, b := range boxes {
		frags[i] = b.frag
	}
	cfg := layout.DefaultLineConfig()
	cfg.MinLineWidth = 0
	lines := layout.NewLineDetectorWithConfig(cfg).Detect(frags, p.Width, p.Height).Lines

	table := make(sheet.RawTable, 0, len(lines))
	for _, line := range lines {
		lf := append([]text.TextFragment(nil), line.Fragments...)
		sort.SliceStable(lf, func(i, j int) bool { return lf[i].X < lf[j].X })
		row := []string{""}
		for _, f := range lf {
			appendCell(row, 0, f.Text)
		}
		table = append(table, row)
	}
	return table
}

func appendCell(row []string, col int, s string) {
	s = strings.TrimSpace(s)
	if row[col] == "" {
		row[col] = s
	} else {
		row[col] += " " + s
	}
}
