package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	heic "github.com/gen2brain/heic"
	webp "golang.org/x/image/webp"
)

const (
	maxImageBytes       = 5 << 20   // 5 MiB per upload
	maxUserStorageBytes = 100 << 20 // 100 MiB of uploaded binaries per user
	maxDimensionPixels  = 4000
	transcodeQuality    = 90
)

// decodeDimensions reads only the header of the binary and returns its pixel
// dimensions. The sniffed MIME type selects the decoder.
func decodeDimensions(mime string, data []byte) (int, int, error) {
	reader := bytes.NewReader(data)
	var (
		config image.Config
		err    error
	)
	switch mime {
	case mimeJPEG:
		config, err = jpeg.DecodeConfig(reader)
	case mimePNG:
		config, err = png.DecodeConfig(reader)
	case mimeWebP:
		config, err = webp.DecodeConfig(reader)
	case mimeHEIC, mimeHEIF:
		config, err = heic.DecodeConfig(reader)
	default:
		return 0, 0, fmt.Errorf("images: no decoder for %q", mime)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("images: decoding %s header: %w", mime, err)
	}
	return config.Width, config.Height, nil
}

// transcodeHEIC re-encodes a HEIC binary as JPEG so browsers can render it.
func transcodeHEIC(data []byte) ([]byte, error) {
	decoded, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("images: decoding heic: %w", err)
	}
	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, decoded, &jpeg.Options{Quality: transcodeQuality}); err != nil {
		return nil, fmt.Errorf("images: encoding jpeg: %w", err)
	}
	return buffer.Bytes(), nil
}
