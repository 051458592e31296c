package invitecode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"strings"
)

// Codes shorter than RequestCodeThreshold encode a numeric identifier; codes at
// or beyond it are opaque signed request tokens handled elsewhere. The split is
// a wire-compatibility contract and must not change.
const RequestCodeThreshold = 64

const (
	idSize       = 8
	checksumSize = 4
)

var (
	// ErrInvalidCode indicates the code is malformed or its checksum does not verify.
	ErrInvalidCode = errors.New("invitecode: invalid code")
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Codec reversibly encodes numeric identifiers (company or event ids) into
// opaque shareable codes. A truncated HMAC-SHA256 checksum rejects tampered or
// mistyped codes on decode.
type Codec struct {
	secret []byte
}

// New constructs a Codec keyed with the supplied secret.
func New(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("invitecode: secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode produces an opaque code for the identifier. Encoded codes are always
// well below RequestCodeThreshold characters.
func (c *Codec) Encode(id uint64) string {
	buf := make([]byte, idSize, idSize+checksumSize)
	binary.BigEndian.PutUint64(buf, id)
	buf = append(buf, c.checksum(buf[:idSize])...)
	return strings.ToLower(encoding.EncodeToString(buf))
}

// Decode recovers the identifier from a code produced by Encode. It fails with
// ErrInvalidCode on malformed input or a checksum mismatch.
func (c *Codec) Decode(code string) (uint64, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) >= RequestCodeThreshold {
		return 0, ErrInvalidCode
	}

	raw, err := encoding.DecodeString(strings.ToUpper(code))
	if err != nil {
		return 0, ErrInvalidCode
	}
	if len(raw) != idSize+checksumSize {
		return 0, ErrInvalidCode
	}

	payload, sum := raw[:idSize], raw[idSize:]
	if !hmac.Equal(sum, c.checksum(payload)) {
		return 0, ErrInvalidCode
	}

	return binary.BigEndian.Uint64(payload), nil
}

func (c *Codec) checksum(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return mac.Sum(nil)[:checksumSize]
}
