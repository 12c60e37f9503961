package service

import (
	"errors"
	"mime"

	"github.com/atinyakov/dogify/internal/models"
)

// MaxImageBytes is the largest image accepted for upload.
const MaxImageBytes int64 = 5 << 20

var (
	// ErrUnsupportedImage is returned for anything but JPEG, PNG or WebP.
	ErrUnsupportedImage = errors.New("only JPEG, PNG and WebP images are accepted")

	// ErrImageTooLarge is returned for images over the size limit.
	ErrImageTooLarge = errors.New("image must not be larger than 5MB")
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// CheckImageType accepts the image types browsers can render without running
// script. Media type parameters are ignored.
func CheckImageType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !imageTypes[mediaType] {
		return ErrUnsupportedImage
	}
	return nil
}

// CheckImage validates the type and the actual size of file. max <= 0 means
// MaxImageBytes.
func CheckImage(file models.ImageFile, max int64) error {
	if err := CheckImageType(file.ContentType); err != nil {
		return err
	}
	if max <= 0 {
		max = MaxImageBytes
	}
	if int64(len(file.Data)) > max || file.Size > max {
		return ErrImageTooLarge
	}
	return nil
}
