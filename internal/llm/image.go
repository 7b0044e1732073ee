package llm

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/onoma/constants"
)

// ImageDataURL reads an image for a vision request. Only raster formats the
// endpoints accept are allowed; SVG must be rendered first.
func ImageDataURL(path string, maxMB int) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsImageExt(ext) {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if maxMB > 0 && st.Size() > int64(maxMB)*1024*1024 {
		return "", fmt.Errorf("image %s is %d bytes, over the %d MB limit", path, st.Size(), maxMB)
	}
	u, _, err := readAsDataURL(path)
	return u, err
}

func readAsDataURL(path string) (string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		case "webp":
			mt = "image/webp"
		case "gif":
			mt = "image/gif"
		case "bmp":
			mt = "image/bmp"
		default:
			mt = "application/octet-stream"
		}
	}
	data := base64.StdEncoding.EncodeToString(b)
	return "data:" + mt + ";base64," + data, mt, nil
}
