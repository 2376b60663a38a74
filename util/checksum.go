package util

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// SHA1Hex returns the hex encoded SHA-1 digest of everything read from r.
func SHA1Hex(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hashing contents")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileSHA1 returns the hex encoded SHA-1 digest of the file at fn.
func FileSHA1(fn string) (string, error) {
	f, err := os.Open(fn)
	if err != nil {
		return "", errors.Wrapf(err, "opening '%s'", fn)
	}
	defer f.Close()

	return SHA1Hex(f)
}

// ChecksumMatches reports whether the file at fn exists and its SHA-1
// equals want, ignoring case.
func ChecksumMatches(fn, want string) bool {
	got, err := FileSHA1(fn)
	if err != nil {
		return false
	}
	return strings.EqualFold(got, want)
}
