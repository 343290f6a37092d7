package service

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// normalizeReceiptImage bounds the pixel dimensions of JPEG/PNG receipts
// before they are base64-encoded for the vision call. Images whose longest
// side exceeds maxSide are scaled down and re-encoded as JPEG; everything
// else (including PDFs and undecodable data) passes through untouched.
func normalizeReceiptImage(content []byte, mimeType string, maxSide int) ([]byte, string) {
	if maxSide <= 0 {
		return content, mimeType
	}
	if mimeType != "image/jpeg" && mimeType != "image/jpg" && mimeType != "image/png" {
		return content, mimeType
	}

	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return content, mimeType
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxSide && bounds.Dy() <= maxSide {
		return content, mimeType
	}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return content, mimeType
	}

	return buf.Bytes(), "image/jpeg"
}
