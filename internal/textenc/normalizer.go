// Package textenc makes sure text-like inputs are UTF-8 before anything reads them.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/scratch"
)

const (
	sampleSize    = 10 * 1024
	trialSize     = 64 * 1024
	minConfidence = 0.7

	fallbackCharset = "windows-1252"
)

// Detector guesses the charset of a byte sample. Confidence is in [0, 1].
type Detector interface {
	Detect(sample []byte) (charset string, confidence float64, err error)
}

type chardetDetector struct{}

func (chardetDetector) Detect(sample []byte) (string, float64, error) {
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		if errors.Is(err, chardet.NotDetectedError) {
			return "", 0, nil
		}
		return "", 0, err
	}
	return res.Charset, float64(res.Confidence) / 100, nil
}

// AreaSource lazily provides the scratch area that converted copies go into.
type AreaSource interface {
	Get() (*scratch.Area, error)
}

// Result describes the file downstream readers should use.
type Result struct {
	Path       string  // original path, or the converted copy
	Charset    string  // charset the decision was based on
	Confidence float64 // detector confidence, 0 when not consulted
	Converted  bool
}

type Normalizer struct {
	detector Detector
	logger   *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return NewNormalizerWithDetector(chardetDetector{}, logger)
}

func NewNormalizerWithDetector(d Detector, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if d == nil {
		d = chardetDetector{}
	}
	return &Normalizer{detector: d, logger: logger}
}

// EnsureUTF8 returns a path whose contents are valid UTF-8. Non-text-like
// files and files already in UTF-8 or ASCII come back unchanged. Anything
// else is transcoded into a sibling-named copy inside the area from src; the
// original file is never modified.
func (n *Normalizer) EnsureUTF8(path string, src AreaSource) (Result, error) {
	if !constants.IsTextLikeExt(filepath.Ext(path)) {
		return Result{Path: path}, nil
	}

	sample, err := readHead(path, sampleSize)
	if err != nil {
		return Result{}, err
	}
	// An ASCII sample still goes through the trial read below: bytes past
	// the sample may not be ASCII.
	decided, conf := "ascii", 0.0
	if !isASCII(sample) {
		var charset string
		charset, conf, err = n.detector.Detect(sample)
		if err != nil {
			n.logger.Warn("textenc.detect_failed", "path", path, "error", err)
			charset, conf = "", 0
		}
		decided = canonical(charset)

		switch {
		// Statistical detectors label UTF-8 punctuation (em dashes, curly quotes)
		// as windows-1252 because every byte is in range. Heuristic.
		case decided == "windows-1252" && utf8.Valid(trimPartialRune(sample)):
			n.logger.Debug("textenc.cp1252_false_positive", "path", path, "confidence", conf)
			decided = "utf-8"
		case decided == "" || conf < minConfidence:
			n.logger.Debug("textenc.low_confidence", "path", path, "charset", charset, "confidence", conf)
			decided = "utf-8"
		}
	}

	if decided == "utf-8" || decided == "ascii" {
		ok, err := validUTF8Prefix(path, trialSize)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Path: path, Charset: decided, Confidence: conf}, nil
		}
		n.logger.Warn("textenc.utf8_trial_failed", "path", path, "fallback", fallbackCharset)
		decided = fallbackCharset
	}

	out, err := n.convert(path, decided, src)
	if err != nil {
		return Result{}, err
	}
	n.logger.Info("textenc.converted", "path", path, "charset", decided, "confidence", conf, "out", out)
	return Result{Path: out, Charset: decided, Confidence: conf, Converted: true}, nil
}

func (n *Normalizer) convert(path, charset string, src AreaSource) (string, error) {
	enc, err := lookup(charset)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrEncoding, path, err)
	}
	if src == nil {
		return "", fmt.Errorf("%w: no scratch area for converted copy of %s", common.ErrEncoding, path)
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", common.ErrIO, path, err)
	}
	defer in.Close()

	decoded, err := io.ReadAll(transform.NewReader(in, enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s as %s: %v", common.ErrEncoding, path, charset, err)
	}
	decoded = bytes.ToValidUTF8(decoded, []byte(string(utf8.RuneError)))

	area, err := src.Get()
	if err != nil {
		return "", err
	}
	out := area.Path(ConvertedName(path))
	if err := os.WriteFile(out, decoded, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", common.ErrIO, out, err)
	}
	return out, nil
}

// ConvertedName is the file name used for a transcoded copy: report.txt -> report.utf8.txt.
func ConvertedName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".utf8" + ext
}

func lookup(charset string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(charset); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc, nil
}

// canonical lowercases detector names and maps the few spellings the
// indexes do not know.
func canonical(charset string) string {
	c := strings.ToLower(strings.TrimSpace(charset))
	switch c {
	case "utf8":
		return "utf-8"
	case "us-ascii":
		return "ascii"
	case "gb-18030":
		return "gb18030"
	case "cp1252":
		return "windows-1252"
	}
	return c
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrIO, path, err)
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrIO, path, err)
	}
	return buf[:read], nil
}

func validUTF8Prefix(path string, n int) (bool, error) {
	head, err := readHead(path, n)
	if err != nil {
		return false, err
	}
	if len(head) == n {
		head = trimPartialRune(head)
	}
	return utf8.Valid(head), nil
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the end of a window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
