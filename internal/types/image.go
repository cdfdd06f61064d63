package types

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when a file's content is not an image.
var ErrNotImage = errors.New("types: not an image")

// Image is an inline screenshot handed to the context coach.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// NewImage sniffs data and wraps it as an Image.
func NewImage(name string, data []byte) (*Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, name, mt.String())
	}
	return &Image{Name: name, MIMEType: mt.String(), Data: data}, nil
}

// LoadImage reads path and returns it as an Image.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("types: read image: %w", err)
	}
	return NewImage(filepath.Base(path), data)
}
