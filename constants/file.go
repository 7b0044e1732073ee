package constants

import "strings"

// Format is the extraction strategy chosen for a file.
type Format string

const (
	TEXT  Format = "TEXT"
	PDF   Format = "PDF"
	PPTX  Format = "PPTX"
	IMAGE Format = "IMAGE"
	SVG   Format = "SVG"
	HTML  Format = "HTML"
	DOCX  Format = "DOCX"
	ODT   Format = "ODT"
	OTHER Format = "OTHER"
)

// PlainTextExtensions are read as-is and handed to the generator without conversion.
var PlainTextExtensions = map[string]struct{}{
	"txt": {}, "md": {}, "markdown": {}, "rst": {}, "log": {},
	"csv": {}, "tsv": {}, "json": {}, "yaml": {}, "yml": {}, "toml": {},
	"ini": {}, "cfg": {}, "conf": {}, "xml": {},
	"go": {}, "py": {}, "js": {}, "ts": {}, "java": {}, "c": {}, "h": {},
	"cpp": {}, "rs": {}, "rb": {}, "sh": {}, "sql": {},
}

// ImageExtensions can be attached to a vision request directly.
var ImageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "webp": {}, "gif": {}, "bmp": {},
}

// HEICExtensions need converting to PNG before a vision request.
var HEICExtensions = map[string]struct{}{
	"heic": {}, "heif": {},
}

// markupExtensions are text on disk but go through a converter.
var markupExtensions = map[string]struct{}{
	"html": {}, "htm": {}, "svg": {},
}

// documentExtensions are binary formats the renamer still recognises as real extensions.
var documentExtensions = map[string]struct{}{
	"pdf": {}, "pptx": {}, "docx": {}, "odt": {}, "xlsx": {}, "doc": {}, "ppt": {},
	"xls": {}, "rtf": {}, "epub": {}, "zip": {}, "tar": {}, "gz": {},
	"mp3": {}, "mp4": {}, "mov": {}, "wav": {}, "tiff": {}, "tif": {},
}

// MaxVisionMBDefault caps the size of a single image sent to the model.
const MaxVisionMBDefault = 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func IsPlainTextExt(ext string) bool {
	_, ok := PlainTextExtensions[NormalizeExt(ext)]
	return ok
}

// IsTextLikeExt reports whether the file is text on disk and therefore subject
// to encoding normalisation before it is read or converted.
func IsTextLikeExt(ext string) bool {
	e := NormalizeExt(ext)
	if _, ok := PlainTextExtensions[e]; ok {
		return true
	}
	_, ok := markupExtensions[e]
	return ok
}

func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}

func IsHEICExt(ext string) bool {
	_, ok := HEICExtensions[NormalizeExt(ext)]
	return ok
}

// IsKnownExt reports whether ext is a file extension onoma recognises. A
// suggested name only loses its trailing segment when that segment is known.
func IsKnownExt(ext string) bool {
	e := NormalizeExt(ext)
	if e == "" {
		return false
	}
	for _, set := range []map[string]struct{}{PlainTextExtensions, ImageExtensions, HEICExtensions, markupExtensions, documentExtensions} {
		if _, ok := set[e]; ok {
			return true
		}
	}
	return false
}

// MapExtToFormat picks the extraction strategy for an extension.
func MapExtToFormat(ext string) Format {
	e := NormalizeExt(ext)
	switch {
	case IsPlainTextExt(e):
		return TEXT
	case IsImageExt(e), IsHEICExt(e):
		return IMAGE
	}
	switch e {
	case "pdf":
		return PDF
	case "pptx":
		return PPTX
	case "svg":
		return SVG
	case "html", "htm":
		return HTML
	case "docx":
		return DOCX
	case "odt":
		return ODT
	default:
		return OTHER
	}
}

// ParseFormat maps a user supplied --format value onto a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "markdown", "md":
		return TEXT, true
	case "pdf":
		return PDF, true
	case "pptx", "slides":
		return PPTX, true
	case "image", "img":
		return IMAGE, true
	case "svg":
		return SVG, true
	case "html":
		return HTML, true
	case "docx":
		return DOCX, true
	case "odt":
		return ODT, true
	}
	return "", false
}
