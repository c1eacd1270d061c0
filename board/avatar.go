package board

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"net/http"

	"msgboard/config"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrAvatarInvalid = errors.New("invalid avatar image")

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
}

// ProcessAvatar validates an uploaded image and crops it to a square JPEG.
// It returns the encoded image and a short content hash for naming.
func ProcessAvatar(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: file is empty", ErrAvatarInvalid)
	}
	if len(data) > config.MaxAvatarSize {
		return nil, "", fmt.Errorf("%w: file is larger than the %dMB limit", ErrAvatarInvalid, config.MaxAvatarSize/1024/1024)
	}

	// Magic byte validation
	contentType := http.DetectContentType(data)
	if !allowedAvatarTypes[contentType] {
		return nil, "", fmt.Errorf("%w: unsupported file type %s", ErrAvatarInvalid, contentType)
	}

	reader := bytes.NewReader(data)
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, "", fmt.Errorf("%w: could not decode config: %v", ErrAvatarInvalid, err)
	}
	if cfg.Width > config.MaxAvatarDim || cfg.Height > config.MaxAvatarDim {
		return nil, "", fmt.Errorf("%w: dimensions (%dx%d) exceed maximum (%dx%d)", ErrAvatarInvalid, cfg.Width, cfg.Height, config.MaxAvatarDim, config.MaxAvatarDim)
	}
	if _, err := reader.Seek(0, 0); err != nil {
		return nil, "", fmt.Errorf("could not reset reader position: %w", err)
	}

	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrAvatarInvalid, err)
	}
	square := imaging.Fill(img, config.AvatarSize, config.AvatarSize, imaging.Center, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, square, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("failed to encode avatar: %w", err)
	}

	hash := sha256.Sum256(out.Bytes())
	return out.Bytes(), hex.EncodeToString(hash[:])[:12], nil
}
