package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const defaultDownloadTTL = 24 * time.Hour

var (
	// ErrTokenInvalid covers malformed and tampered download tokens.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired marks a token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadSigner mints and verifies the tokens handed out for report file
// downloads. A token binds the report job ID to the stored file path so a
// leaked path alone is not fetchable.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner builds a signer. A non-positive TTL falls back to 24h.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = defaultDownloadTTL
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns an opaque token for the job's rendered file and the
// moment it stops being valid.
func (s *DownloadSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("job id and file path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("download signing secret not configured")
	}

	expiresAt := s.now().Add(s.ttl)
	claims := encodeClaims(jobID, relPath, expiresAt)
	token := claims + "." + s.sign(claims)
	return token, expiresAt, nil
}

// Parse verifies a token and returns its claims. With allowExpired the
// expiry check is skipped, which cleanup uses to map old tokens to files.
func (s *DownloadSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	claims, sig, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(s.sign(claims)), []byte(sig)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	jobID, relPath, expiresAt, err = decodeClaims(claims)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return jobID, relPath, expiresAt, nil
}

func (s *DownloadSigner) sign(claims string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(claims))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func encodeClaims(jobID, relPath string, expiresAt time.Time) string {
	raw := jobID + "\n" + relPath + "\n" + strconv.FormatInt(expiresAt.Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeClaims(claims string) (jobID, relPath string, expiresAt time.Time, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(claims)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	parts := strings.Split(string(raw), "\n")
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	return parts[0], parts[1], time.Unix(unix, 0), nil
}
