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

// Package render draws court diagrams as PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ttbt-io/volleysheet/sheet"
)

const (
	DefaultWidth  = 360
	DefaultHeight = 440

	margin       = 30
	headerHeight = 40
	playerRadius = 14
)

var (
	Background  = color.RGBA{0xf4, 0xf6, 0xf8, 0xff}
	CourtColor  = color.RGBA{0xf2, 0xa6, 0x5a, 0xff}
	LineColor   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	NetColor    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	PlayerColor = color.RGBA{0x1f, 0x4e, 0x9c, 0xff}
	ServerColor = color.RGBA{0xc6, 0x28, 0x28, 0xff}
	TextColor   = color.RGBA{0x11, 0x11, 0x11, 0xff}
)

// CourtOptions describes one court diagram.
type CourtOptions struct {
	Title   string
	Lineup  sheet.Lineup
	Serving bool
	// Stats, when set, is written under the title.
	Stats *sheet.RotationRow

	Width, Height int
}

// Geometry maps normalized court coordinates to pixels.
type Geometry struct {
	Court image.Rectangle
}

func newGeometry(w, h int) Geometry {
	// Leave room behind the end line for the server.
	courtH := int(float64(h-headerHeight-margin) / (sheet.ServeY + 0.05))
	return Geometry{Court: image.Rect(margin, headerHeight, w-margin, headerHeight+courtH)}
}

// Point returns the pixel position of a normalized placement.
func (g Geometry) Point(x, y float64) image.Point {
	return image.Pt(
		g.Court.Min.X+int(x*float64(g.Court.Dx())),
		g.Court.Min.Y+int(y*float64(g.Court.Dy())),
	)
}

// CourtGeometry returns the geometry Court uses for the given options.
func CourtGeometry(opts CourtOptions) Geometry {
	w, h := size(opts)
	return newGeometry(w, h)
}

func size(opts CourtOptions) (int, int) {
	w, h := opts.Width, opts.Height
	if w <= 2*margin+4*playerRadius {
		w = DefaultWidth
	}
	if h <= headerHeight+margin+4*playerRadius {
		h = DefaultHeight
	}
	return w, h
}

// Court draws the lineup on a half court and encodes it as PNG. Blank
// numbers are drawn as empty circles.
func Court(w io.Writer, opts CourtOptions) error {
	width, height := size(opts)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	g := newGeometry(width, height)
	draw.Draw(img, g.Court, image.NewUniform(CourtColor), image.Point{}, draw.Src)
	outline(img, g.Court, 2, LineColor)
	// Attack line, three meters out of nine.
	attackY := g.Point(0, 1.0/3).Y
	fillRect(img, image.Rect(g.Court.Min.X, attackY-1, g.Court.Max.X, attackY+1), LineColor)
	fillRect(img, image.Rect(g.Court.Min.X-6, g.Court.Min.Y-3, g.Court.Max.X+6, g.Court.Min.Y+1), NetColor)

	title := opts.Title
	if title == "" {
		title = "Rotation"
	}
	drawText(img, title, margin, 16, TextColor)
	if s := opts.Stats; s != nil {
		drawText(img, fmt.Sprintf("R%d  scored %d  conceded %d  diff %+d", s.Rotation, s.Scored, s.Conceded, s.Diff), margin, 32, TextColor)
	}

	for _, p := range sheet.CourtLayout(opts.Lineup, opts.Serving) {
		c := g.Point(p.X, p.Y)
		fill := PlayerColor
		if p.OffCourt {
			fill = ServerColor
		}
		disc(img, c, playerRadius, fill)
		if p.Number != "" {
			centerText(img, p.Number, c, LineColor)
		}
	}
	return png.Encode(w, img)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func outline(img *image.RGBA, r image.Rectangle, t int, c color.Color) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func disc(img *image.RGBA, center image.Point, r int, c color.RGBA) {
	b := img.Bounds()
	for y := center.Y - r; y <= center.Y+r; y++ {
		for x := center.X - r; x <= center.X+r; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy > r*r || !(image.Point{x, y}).In(b) {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}

func drawText(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func centerText(img *image.RGBA, s string, center image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
	adv := d.MeasureString(s).Round()
	m := basicfont.Face7x13.Metrics()
	h := (m.Ascent - m.Descent).Round()
	d.Dot = fixed.P(center.X-adv/2, center.Y+h/2)
	d.DrawString(s)
}
