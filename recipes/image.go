package recipes

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"recipebox/store"
)

// sniffLen matches the amount mimetype inspects by default.
const sniffLen = 3072

// imageTypes are the formats served back from the public bucket. SVG is left
// out because it can carry script.
var imageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// checkImage detects the upload's type from its content. Anything that is not
// one of imageTypes fails validation on the image field. The returned upload
// carries the detected content type and an unconsumed body.
func checkImage(img *Upload) (*Upload, error) {
	if img == nil {
		return nil, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(img.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read image %s: %w", img.Filename, err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !mimetype.EqualsAny(mt.String(), imageTypes...) {
		return nil, &store.ValidationError{Fields: []string{"image"}}
	}

	checked := *img
	checked.ContentType = mt.String()
	checked.Body = io.MultiReader(bytes.NewReader(head), img.Body)
	return &checked, nil
}
