package images

import "bytes"

// Canonical MIME types accepted by the upload pipeline.
const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeWebP = "image/webp"
	mimeHEIC = "image/heic"
	mimeHEIF = "image/heif"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// heifBrands are the ftyp major brands accepted as HEIC/HEIF input.
var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("heim"), []byte("heis"), []byte("mif1"), []byte("msf1"),
	[]byte("heif"),
}

// sniffFormat inspects the leading bytes and returns the canonical MIME type
// of the actual content. The declared Content-Type header is never trusted.
func sniffFormat(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return mimeJPEG, true
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return mimePNG, true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return mimeWebP, true
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) && isHeifBrand(data[8:12]):
		return mimeHEIC, true
	}
	return "", false
}

func isHeifBrand(brand []byte) bool {
	for _, candidate := range heifBrands {
		if bytes.Equal(brand, candidate) {
			return true
		}
	}
	return false
}

// mimeMatches reports whether the declared type agrees with the sniffed one.
// HEIC and HEIF are treated as interchangeable declarations.
func mimeMatches(declared, sniffed string) bool {
	if declared == sniffed {
		return true
	}
	if sniffed == mimeHEIC && (declared == mimeHEIF || declared == mimeHEIC) {
		return true
	}
	return false
}

func extensionFor(mime string) string {
	switch mime {
	case mimeJPEG:
		return "jpg"
	case mimePNG:
		return "png"
	case mimeWebP:
		return "webp"
	case mimeHEIC, mimeHEIF:
		return "heic"
	}
	return "bin"
}
