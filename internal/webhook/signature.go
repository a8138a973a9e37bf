package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks header ("<timestamp>,<hex-hmac>") against the
// HMAC-SHA256 of body. An empty secret disables verification, which is how
// the gateway's test mode is run locally.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return nil
	}
	got, ok := signaturePart(header)
	if !ok {
		return ErrInvalidSignature
	}
	want := computeHMAC(secret, body)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(got))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign produces a header value VerifySignature accepts.
func Sign(secret string, timestamp int64, body []byte) string {
	return strconv.FormatInt(timestamp, 10) + "," + computeHMAC(secret, body)
}

func computeHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// signaturePart returns the second comma separated field, dropping a
// "key=" prefix such as "te=".
func signaturePart(header string) (string, bool) {
	parts := strings.Split(header, ",")
	if len(parts) < 2 {
		return "", false
	}
	sig := strings.TrimSpace(parts[1])
	if i := strings.IndexByte(sig, '='); i >= 0 {
		sig = sig[i+1:]
	}
	return sig, sig != ""
}
