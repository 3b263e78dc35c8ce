package session

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Formatos aceitos da webcam.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var errUnreadableImage = errors.New("image could not be decoded")

// decodeImage aceita um data URL ("data:image/jpeg;base64,...") ou base64 puro
// e devolve os bytes da imagem, já verificados como uma imagem conhecida.
func decodeImage(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		i := strings.IndexByte(data, ',')
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", errInvalidPayload)
		}
		data = data[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: image_data is not base64: %v", errInvalidPayload, err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnreadableImage, err)
	}
	return raw, nil
}
