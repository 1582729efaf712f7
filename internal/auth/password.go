// Package auth provides password hashing, access tokens and request authentication.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters (OWASP 2024 recommended minimum).
const (
	defaultArgon2Time    = 3
	defaultArgon2Memory  = 64 * 1024 // 64 MB
	defaultArgon2Threads = 4
	argon2KeyLen         = 32
	argon2SaltLen        = 16
)

// Scheme identifiers as they appear at the start of an encoded hash.
const (
	SchemeArgon2id     = "argon2id"
	SchemeBcrypt       = "bcrypt"
	SchemeBcryptSHA256 = "bcrypt-sha256"
)

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// PasswordParams configures the primary Argon2id scheme.
type PasswordParams struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
}

// DefaultPasswordParams returns the recommended Argon2id parameters.
func DefaultPasswordParams() PasswordParams {
	return PasswordParams{
		Memory:  defaultArgon2Memory,
		Time:    defaultArgon2Time,
		Threads: defaultArgon2Threads,
	}
}

// Hasher hashes new passwords with Argon2id and verifies both Argon2id and
// legacy bcrypt hashes. Legacy schemes are accepted for verification only.
type Hasher struct {
	params PasswordParams
}

// NewHasher creates a Hasher. Zero-valued parameters fall back to defaults.
func NewHasher(params PasswordParams) *Hasher {
	def := DefaultPasswordParams()
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	return &Hasher{params: params}
}

// Hash creates an Argon2id hash of the given password.
// Returns the hash in PHC string format.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		argon2KeyLen,
	)

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		SchemeArgon2id,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches encodedHash.
// Malformed or unknown hashes never match; Verify does not return errors.
func (h *Hasher) Verify(password, encodedHash string) bool {
	switch Scheme(encodedHash) {
	case SchemeArgon2id:
		ok, err := verifyArgon2id(password, encodedHash)
		return err == nil && ok
	case SchemeBcryptSHA256:
		return verifyBcryptSHA256(password, encodedHash)
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether encodedHash should be replaced by a fresh
// Argon2id hash: legacy schemes, unparseable hashes, and Argon2id hashes
// weaker than the current parameters all qualify.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	if Scheme(encodedHash) != SchemeArgon2id {
		return true
	}
	p, err := parseArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return p.memory < h.params.Memory || p.time < h.params.Time || p.threads < h.params.Threads
}

// Scheme returns the scheme identifier of an encoded hash, or "" if unknown.
func Scheme(encodedHash string) string {
	switch {
	case strings.HasPrefix(encodedHash, "$"+SchemeArgon2id+"$"):
		return SchemeArgon2id
	case strings.HasPrefix(encodedHash, "$"+SchemeBcryptSHA256+"$"):
		return SchemeBcryptSHA256
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return SchemeBcrypt
	}
	return ""
}

type argon2idHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

func parseArgon2id(encodedHash string) (*argon2idHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != SchemeArgon2id {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleVersion
	}

	var p argon2idHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, ErrInvalidHash
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, ErrInvalidHash
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.hash) == 0 {
		return nil, ErrInvalidHash
	}

	return &p, nil
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	p, err := parseArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.hash)))

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare(computed, p.hash) == 1, nil
}

// verifyBcryptSHA256 checks the "$bcrypt-sha256$" envelope, which prehashes
// the password with SHA-256 so bcrypt's 72-byte input limit does not truncate it.
//
//	v1: $bcrypt-sha256$2b,12$<salt>$<digest>        key = b64(sha256(pw))
//	v2: $bcrypt-sha256$v=2,t=2b,r=12$<salt>$<digest> key = b64(hmac-sha256(salt, pw))
func verifyBcryptSHA256(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 || len(parts[3]) != 22 || len(parts[4]) != 31 {
		return false
	}
	params, salt, digest := parts[2], parts[3], parts[4]

	var (
		version = 1
		ident   string
		rounds  int
		err     error
	)
	if strings.HasPrefix(params, "v=") {
		fields := strings.Split(params, ",")
		if len(fields) != 3 || fields[0] != "v=2" ||
			!strings.HasPrefix(fields[1], "t=") || !strings.HasPrefix(fields[2], "r=") {
			return false
		}
		version = 2
		ident = strings.TrimPrefix(fields[1], "t=")
		rounds, err = strconv.Atoi(strings.TrimPrefix(fields[2], "r="))
	} else {
		fields := strings.Split(params, ",")
		if len(fields) != 2 {
			return false
		}
		ident = fields[0]
		rounds, err = strconv.Atoi(fields[1])
	}
	if err != nil || rounds < bcrypt.MinCost || rounds > bcrypt.MaxCost {
		return false
	}
	if ident != "2a" && ident != "2b" {
		return false
	}

	var sum []byte
	if version == 2 {
		mac := hmac.New(sha256.New, []byte(salt))
		mac.Write([]byte(password))
		sum = mac.Sum(nil)
	} else {
		s := sha256.Sum256([]byte(password))
		sum = s[:]
	}
	key := base64.StdEncoding.EncodeToString(sum)

	inner := fmt.Sprintf("$%s$%02d$%s%s", ident, rounds, salt, digest)
	return bcrypt.CompareHashAndPassword([]byte(inner), []byte(key)) == nil
}
