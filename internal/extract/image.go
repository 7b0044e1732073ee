package extract

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/scratch"
)

// extractImage describes an image and attaches it as the only artifact.
// HEIC/HEIF is converted to PNG first since vision endpoints reject it.
func (e *Extractor) extractImage(ctx context.Context, path string, lease *scratch.Lease) (Result, error) {
	img := path
	if constants.IsHEICExt(filepath.Ext(path)) {
		area, err := lease.Get()
		if err != nil {
			return nil, err
		}
		out, err := convertHEIC(ctx, e, path, area.Path("image.png"))
		if err != nil {
			return nil, err
		}
		img = out
	}
	return TextWithArtifacts{
		Markdown:  describeImage(path, img),
		Artifacts: []string{img},
		Scratch:   lease.Area(),
	}, nil
}

func convertHEIC(ctx context.Context, e *Extractor, in, out string) (string, error) {
	var errb []byte
	var err error
	switch e.cfg.HeicConverter {
	case "heif-convert":
		_, errb, err = e.runner.Run(ctx, "heif-convert", e.logger, in, out)
	case "magick":
		_, errb, err = e.runner.Run(ctx, "magick", e.logger, in, out)
	case "sips":
		_, errb, err = e.runner.Run(ctx, "sips", e.logger, "-s", "format", "png", in, "--out", out)
	default:
		return "", fmt.Errorf("%w: HEIC not supported: set extract.heic_converter to one of: heif-convert | magick | sips", common.ErrExtraction)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s failed: %v: %s", common.ErrExtraction, e.cfg.HeicConverter, err, truncate(string(errb), 1<<10))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("%w: HEIC conversion produced no output: %v", common.ErrExtraction, statErr)
	}
	return out, nil
}

// describeImage gives the text phase something to anchor on.
func describeImage(original, img string) string {
	desc := fmt.Sprintf("Image file: %s", filepath.Base(original))
	f, err := os.Open(img)
	if err != nil {
		return desc
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return desc
	}
	return fmt.Sprintf("%s (%s, %dx%d pixels)", desc, format, cfg.Width, cfg.Height)
}
