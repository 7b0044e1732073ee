package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/joseph-ayodele/onoma/internal/common"
)

// svgMarkdown keeps the human-readable parts of an SVG: title, desc and
// text content. Rendering happens separately via RenderSVG.
func svgMarkdown(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var (
		title string
		descs []string
		texts []string
		cur   strings.Builder
		stack []string
	)
	dec := xml.NewDecoder(f)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if t.Name.Local == "title" || t.Name.Local == "desc" || t.Name.Local == "text" {
				cur.Reset()
			}
		case xml.CharData:
			if len(stack) > 0 {
				cur.Write(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			s := strings.Join(strings.Fields(cur.String()), " ")
			switch t.Name.Local {
			case "title":
				if title == "" {
					title = s
				}
			case "desc":
				if s != "" {
					descs = append(descs, s)
				}
			case "text":
				if s != "" {
					texts = append(texts, s)
				}
			default:
				continue
			}
			cur.Reset()
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	for _, d := range descs {
		b.WriteString(d + "\n\n")
	}
	for _, t := range texts {
		b.WriteString(t + "\n")
	}
	if b.Len() == 0 {
		b.WriteString("SVG image: " + filepath.Base(path))
	}
	return b.String(), nil
}

// RenderSVG rasterises svgPath to <dir>/<stem>.png with its longest side
// equal to maxSide, preserving aspect ratio, on a white background.
func RenderSVG(svgPath, dir string, maxSide int) (string, error) {
	if maxSide <= 0 {
		maxSide = 1024
	}
	f, err := os.Open(svgPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", common.ErrIO, svgPath, err)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f, oksvg.WarnErrorMode)
	if err != nil {
		return "", fmt.Errorf("%w: parse svg %s: %v", common.ErrExtraction, svgPath, err)
	}
	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		return "", fmt.Errorf("%w: svg %s has no usable size", common.ErrExtraction, svgPath)
	}

	w, h := fitLongestSide(vw, vh, maxSide)
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	stem := strings.TrimSuffix(filepath.Base(svgPath), filepath.Ext(svgPath))
	out := filepath.Join(dir, stem+".png")
	of, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", common.ErrIO, out, err)
	}
	if err := png.Encode(of, img); err != nil {
		_ = of.Close()
		return "", fmt.Errorf("%w: encode %s: %v", common.ErrExtraction, out, err)
	}
	if err := of.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", common.ErrIO, out, err)
	}
	return out, nil
}

func fitLongestSide(w, h float64, maxSide int) (int, int) {
	scale := float64(maxSide) / math.Max(w, h)
	sw := int(math.Round(w * scale))
	sh := int(math.Round(h * scale))
	return max(sw, 1), max(sh, 1)
}
