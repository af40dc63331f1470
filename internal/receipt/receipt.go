// Package receipt renders withdrawal receipts as QR code images.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/rs/zerolog/log"

	"DailyInvestTrade/internal/model"
)

// ErrEncoderFailure wraps anything that stops a receipt image from being produced.
var ErrEncoderFailure = errors.New("an error occurred while generating the QR code")

// Payload is the text embedded in the QR code.
func Payload(r *model.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Username: %s\n", r.Username)
	fmt.Fprintf(&b, "Address: %s\n", r.Address)
	fmt.Fprintf(&b, "Telephone: %s\n", r.Telephone)
	fmt.Fprintf(&b, "Amount Withdrawn: %s\n", r.Amount.String())
	fmt.Fprintf(&b, "Time and Date: %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Last Deposit Amount Made: %s", r.LastDepositAmount.String())
	return b.String()
}

// Encoder turns payloads into PNG QR codes.
type Encoder struct {
	OutputDir string
	Size      int
	Level     qr.ErrorCorrectionLevel
}

// NewEncoder writes images of size x size pixels into outputDir.
func NewEncoder(outputDir string, size int) *Encoder {
	return &Encoder{OutputDir: outputDir, Size: size, Level: qr.M}
}

// Encode returns the PNG bytes of payload as a QR code.
func (e *Encoder) Encode(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrEncoderFailure)
	}
	code, err := qr.Encode(payload, e.Level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderFailure, err)
	}
	if e.Size > 0 {
		if code, err = barcode.Scale(code, e.Size, e.Size); err != nil {
			return nil, fmt.Errorf("%w: scale: %v", ErrEncoderFailure, err)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrEncoderFailure, err)
	}
	return buf.Bytes(), nil
}

// WriteFile encodes r and saves it as withdrawal_qr_code_<unix>.png, returning the path.
func (e *Encoder) WriteFile(r *model.Receipt) (string, error) {
	img, err := e.Encode(Payload(r))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoderFailure, err)
	}
	path := filepath.Join(e.OutputDir, fmt.Sprintf("withdrawal_qr_code_%d.png", r.Timestamp.Unix()))
	if err := os.WriteFile(path, img, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoderFailure, err)
	}
	log.Info().Str("path", path).Msg("withdrawal receipt written")
	return path, nil
}
