package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// openZipEntry returns the named member of an OOXML/ODF archive.
func openZipEntry(r *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range r.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// docxMarkdown reads word/document.xml and emits one block per paragraph,
// turning heading styles into markdown headings.
func docxMarkdown(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	rc, err := openZipEntry(&zr.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		blocks []string
		cur    strings.Builder
		style  string
		inPara bool
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
				style = ""
			case "pStyle":
				for _, a := range t.Attr {
					if a.Name.Local == "val" {
						style = a.Value
					}
				}
			case "t":
				inText = true
			case "tab":
				cur.WriteByte(' ')
			}
		case xml.CharData:
			if inPara && inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				text := strings.TrimSpace(cur.String())
				if text == "" {
					continue
				}
				if level := headingLevel(style); level > 0 {
					text = strings.Repeat("#", level) + " " + text
				}
				blocks = append(blocks, text)
			}
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// headingLevel maps "Heading1".."Heading6" and "Title" to a markdown level.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

// odtMarkdown reads content.xml and keeps text:h / text:p blocks.
func odtMarkdown(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	rc, err := openZipEntry(&zr.Reader, "content.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		blocks []string
		cur    strings.Builder
		depth  int
		level  int
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "h", "p":
				if depth == 0 {
					cur.Reset()
					level = 0
					if t.Name.Local == "h" {
						level = 1
						for _, a := range t.Attr {
							if a.Name.Local == "outline-level" {
								if n, err := strconv.Atoi(a.Value); err == nil && n > 0 && n <= 6 {
									level = n
								}
							}
						}
					}
				}
				depth++
			case "s", "tab":
				cur.WriteByte(' ')
			case "line-break":
				cur.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "h" || t.Name.Local == "p" {
				depth--
				if depth > 0 {
					continue
				}
				text := strings.TrimSpace(cur.String())
				if text == "" {
					continue
				}
				if level > 0 {
					text = strings.Repeat("#", level) + " " + text
				}
				blocks = append(blocks, text)
			}
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

var reSlideXML = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// pptxMarkdown collects the <a:t> runs of every slide, in slide order, under
// a "## Slide n" heading.
func pptxMarkdown(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if m := reSlideXML.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, f: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var b strings.Builder
	for _, s := range slides {
		text, err := slideText(s.f)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.n, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Slide %d\n\n%s", s.n, text)
	}
	return b.String(), nil
}

func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(cur.String()); s != "" {
					paras = append(paras, s)
				}
				cur.Reset()
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}
