package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/scratch"
)

// SlideImagePrefix names the per-slide JPEGs: slide-0.jpeg, slide-1.jpeg, ...
const SlideImagePrefix = "slide-"

// extractPPTX converts the deck to PDF with LibreOffice, then rasterises the
// PDF with ImageMagick into one JPEG per slide. Any failure aborts the file.
func (e *Extractor) extractPPTX(ctx context.Context, path string, lease *scratch.Lease) (Result, error) {
	md, err := pptxMarkdown(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read slides %s: %v", common.ErrExtraction, path, err)
	}

	area, err := lease.Get()
	if err != nil {
		return nil, err
	}

	// soffice --headless --convert-to pdf <deck> --outdir <dir>
	_, errb, err := e.runner.Run(ctx, e.cfg.Soffice, e.logger,
		"--headless", "--convert-to", "pdf", path, "--outdir", area.Dir())
	if err != nil {
		return nil, fmt.Errorf("%w: soffice %s: %v: %s", common.ErrExtraction, path, err, truncate(string(errb), 1<<10))
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pdfPath := area.Path(stem + ".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: soffice produced no pdf for %s", common.ErrExtraction, path)
	}

	// convert -adaptive-resize x1024 -density 150 <deck.pdf> -quality 80 <dir/slide-%d.jpeg>
	_, errb, err = e.runner.Run(ctx, e.cfg.Convert, e.logger,
		"-adaptive-resize", "x"+strconv.Itoa(e.cfg.SlideMaxSide),
		"-density", strconv.Itoa(e.cfg.SlideDensity),
		pdfPath,
		"-quality", strconv.Itoa(e.cfg.SlideQuality),
		area.Path(SlideImagePrefix+"%d.jpeg"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: convert %s: %v: %s", common.ErrExtraction, pdfPath, err, truncate(string(errb), 1<<10))
	}

	slides, err := collectNumbered(area.Dir(), SlideImagePrefix, ".jpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: collect slides: %v", common.ErrExtraction, err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slide images produced for %s", common.ErrExtraction, path)
	}
	return TextWithArtifacts{Markdown: Normalize(md), Artifacts: slides, Scratch: area}, nil
}
