package conversation

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// parseTurn validates the user's input. Text may be omitted when an image is
// present; an image needs a well-formed image/* MIME type and content that
// actually sniffs as an image.
func parseTurn(text, imageBase64, imageMIMEType string) (Turn, error) {
	if strings.TrimSpace(text) == "" && imageBase64 == "" {
		return Turn{}, fmt.Errorf("%w: text or image_base64 is required", ErrInvalidArgument)
	}

	turn := Turn{Text: strings.TrimSpace(text)}
	if imageBase64 == "" {
		return turn, nil
	}

	if strings.TrimSpace(imageMIMEType) == "" {
		return Turn{}, fmt.Errorf("%w: image_mime_type is required with image_base64", ErrInvalidArgument)
	}
	mediaType, _, err := mime.ParseMediaType(imageMIMEType)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: malformed image_mime_type: %v", ErrInvalidArgument, err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return Turn{}, fmt.Errorf("%w: image_mime_type %q is not an image type", ErrInvalidArgument, mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: image_base64 is not valid base64", ErrInvalidArgument)
	}
	if len(data) == 0 {
		return Turn{}, fmt.Errorf("%w: image_base64 is empty", ErrInvalidArgument)
	}
	if detected := mimetype.Detect(data); !strings.HasPrefix(detected.String(), "image/") {
		return Turn{}, fmt.Errorf("%w: image content is %s", ErrInvalidArgument, detected.String())
	}

	turn.Image = data
	turn.ImageMIMEType = mediaType
	return turn, nil
}

// ValidateTurn checks a turn without sending it.
func ValidateTurn(text, imageBase64, imageMIMEType string) error {
	_, err := parseTurn(text, imageBase64, imageMIMEType)
	return err
}
