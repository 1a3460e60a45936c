package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// Authenticator apps assume these; changing them breaks enrolled devices.
const (
	totpPeriod     = 30
	totpDigits     = otp.DigitsSix
	totpAlgorithm  = otp.AlgorithmSHA1
	totpQRCodeSize = 256
)

// newTOTPEnrolment generates a secret for account and renders its otpauth URL
// as a PNG QR code.
func newTOTPEnrolment(issuer, account string) (TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   totpAlgorithm,
	})
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("generate totp key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, totpQRCodeSize)
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("encode totp qr code: %w", err)
	}

	return TOTPSetup{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCodePNG:  png,
	}, nil
}

// validTOTP accepts the current code and one period either side. Spaces are
// ignored since apps often display codes as "123 456".
func validTOTP(secret, code string, at time.Time) bool {
	code = strings.Join(strings.Fields(code), "")
	if len(code) != int(totpDigits) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    totpDigits,
		Algorithm: totpAlgorithm,
	})
	return err == nil && ok
}
