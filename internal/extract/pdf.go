package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/scratch"
)

// PageImageName is the printf pattern for rendered PDF pages.
const PageImageName = "page_%d.png"

// extractPDF pairs the PDF's text with one PNG per page.
func (e *Extractor) extractPDF(ctx context.Context, path string, lease *scratch.Lease) (Result, error) {
	md := e.pdfMarkdown(ctx, path)

	area, err := lease.Get()
	if err != nil {
		return nil, err
	}
	pages, err := e.rasterizePDF(ctx, path, area.Dir())
	if err != nil {
		return nil, err
	}
	return TextWithArtifacts{Markdown: md, Artifacts: pages, Scratch: area}, nil
}

// pdfMarkdown prefers pdftotext and falls back to pdfcpu's content streams.
// Scanned PDFs legitimately have no text, so neither path failing is fatal.
func (e *Extractor) pdfMarkdown(ctx context.Context, path string) string {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err == nil {
		return pagesToMarkdown(strings.Split(string(out), "\f"))
	}
	e.logger.Warn("extract.pdf.pdftotext_failed", "path", path, "error", err, "stderr", truncate(string(errb), 1<<10))

	pages, err := pdfcpuPages(path)
	if err != nil {
		e.logger.Warn("extract.pdf.pdfcpu_failed", "path", path, "error", err)
		return ""
	}
	return pagesToMarkdown(pages)
}

func pagesToMarkdown(pages []string) string {
	var b strings.Builder
	for i, p := range pages {
		p = Normalize(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Page %d\n\n%s", i+1, p)
	}
	return b.String()
}

// rasterizePDF renders every page with pdftoppm and renames the output to
// page_1.png, page_2.png, ... in page order.
func (e *Extractor) rasterizePDF(ctx context.Context, path, dir string) ([]string, error) {
	prefix := "raw"
	// pdftoppm -r 72 -png <in.pdf> <dir/raw>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger,
		"-r", strconv.Itoa(e.cfg.PDFDPI), "-png", path, dir+string(os.PathSeparator)+prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm %s: %v: %s", common.ErrExtraction, path, err, truncate(string(errb), 1<<10))
	}

	// pdftoppm zero-pads page numbers to the width of the page count.
	raw, err := collectNumbered(dir, prefix+"-", ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: collect pages: %v", common.ErrExtraction, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no images for %s", common.ErrExtraction, path)
	}
	pages, err := renameSequential(raw, dir, PageImageName)
	if err != nil {
		return nil, fmt.Errorf("%w: rename pages: %v", common.ErrIO, err)
	}

	if n, err := api.PageCountFile(path); err == nil && n != len(pages) {
		e.logger.Warn("extract.pdf.page_count_mismatch", "path", path, "pdf_pages", n, "rendered", len(pages))
	}
	return pages, nil
}

// pdfcpuPages extracts text per page from the raw content streams.
func pdfcpuPages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			pages = append(pages, "")
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, streamText(data))
	}
	return pages, nil
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// streamText pulls the strings shown by Tj, TJ and ' operators.
func streamText(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			sb.WriteByte(' ')
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			sb.WriteByte('\n')
		}
	}
	return strings.TrimFunc(sb.String(), unicode.IsSpace)
}

func unescapePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := 0
			for j := 0; j < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; j++ {
				val = val*8 + int(raw[i]-'0')
				i++
			}
			i--
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}
