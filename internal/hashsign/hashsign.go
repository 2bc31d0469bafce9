// Package hashsign provides streaming file hashing and HMAC-based
// tamper-evidence signing for instance integrity blobs.
package hashsign

import (
	"bufio"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
)

const bufferSize = 64 * 1024

// hmacKey is the engine's fixed signing key. It makes tampering with an
// integrity blob detectable, not cryptographically authenticated
// against an external identity — anyone with this binary can produce a
// valid signature.
var hmacKey = []byte("luminakraft-modpack-engine-integrity-v1")

// SHA1File streams the file at path through SHA-1, returning its hex
// digest.
func SHA1File(path string) (string, error) {
	return hashFile(path, sha1.New())
}

// SHA256File streams the file at path through SHA-256, returning its
// hex digest.
func SHA256File(path string) (string, error) {
	return hashFile(path, sha256.New())
}

// MD5File streams the file at path through MD5, returning its hex
// digest. Used only to match CurseForge's legacy MD5 hash entries;
// prefer SHA1File/SHA256File elsewhere.
func MD5File(path string) (string, error) {
	return hashFile(path, md5.New())
}

func hashFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", engineerr.New(engineerr.KindFilesystem, "hashsign.hashFile", err).WithPath(path)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, bufferSize)
	if _, err := io.Copy(h, r); err != nil {
		return "", engineerr.New(engineerr.KindFilesystem, "hashsign.hashFile", err).WithPath(path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical renders a relative-path-to-hash map as the canonical form
// signed and verified below: keys sorted lexicographically, one
// "<key>:<value>\n" line per entry. An empty map canonicalizes to the
// empty string.
func Canonical(fileHashes map[string]string) string {
	keys := make([]string, 0, len(fileHashes))
	for k := range fileHashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:%s\n", k, fileHashes[k])
	}
	return b.String()
}

// Sign computes the hex HMAC-SHA-256 signature over the canonical form
// of fileHashes.
func Sign(fileHashes map[string]string) string {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write([]byte(Canonical(fileHashes)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid HMAC-SHA-256 signature
// for fileHashes, using a constant-time comparison so a signature
// mismatch does not leak timing information about how many leading
// bytes matched.
func Verify(fileHashes map[string]string, signature string) bool {
	expected := Sign(fileHashes)

	expectedRaw, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	actualRaw, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedRaw, actualRaw)
}
