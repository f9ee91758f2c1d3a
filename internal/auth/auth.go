// Package auth hashes passwords with argon2id and manages the user file
// consumed by basic auth.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

var defaultParams = params{
	memory:  64 * 1024,
	time:    3,
	threads: 1,
	saltLen: 16,
	keyLen:  32,
}

// Hash is a parsed argon2id PHC string.
type Hash struct {
	m    uint32
	t    uint32
	p    uint8
	salt []byte
	sum  []byte
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, defaultParams.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := Hash{
		m:    defaultParams.memory,
		t:    defaultParams.time,
		p:    defaultParams.threads,
		salt: salt,
	}
	h.sum = h.key(password, defaultParams.keyLen)
	return h.String(), nil
}

func (h *Hash) key(password string, length uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.t, h.m, h.p, length)
}

func (h *Hash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.m, h.t, h.p,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.sum),
	)
}

func (h *Hash) Verify(password string) bool {
	sum := h.key(password, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}

func ParseHash(phc string) (*Hash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}
	h := &Hash{}
	for _, param := range strings.Split(parts[3], ",") {
		key, raw, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.New("invalid argon2id params")
		}
		bits := 32
		if key == "p" {
			bits = 8
		}
		val, err := strconv.ParseUint(raw, 10, bits)
		if err != nil {
			return nil, fmt.Errorf("invalid argon2id param %q", key)
		}
		switch key {
		case "m":
			h.m = uint32(val)
		case "t":
			h.t = uint32(val)
		case "p":
			h.p = uint8(val)
		default:
			return nil, fmt.Errorf("unknown argon2id param %q", key)
		}
	}
	if h.m == 0 || h.t == 0 || h.p == 0 {
		return nil, errors.New("missing argon2id params")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid argon2id salt")
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("invalid argon2id hash")
	}
	return h, nil
}
