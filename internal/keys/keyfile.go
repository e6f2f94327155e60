// Package keys loads and validates the operator's watched validator
// public keys from a flat file. The core never parses keys itself; it
// only ever sees the refreshed set this package produces.
package keys

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// pubkeyPattern matches a 48-byte BLS public key, hex-encoded (96
// characters), with an optional "0x" prefix, case-insensitive.
var pubkeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{96}$`)

// ErrInvalidKey is returned when a line in the key file doesn't match
// the expected pubkey shape. A single bad line rejects the whole
// refresh, per the file format's "reject the whole refresh" rule.
var ErrInvalidKey = errors.New("keys: invalid validator public key")

// Load reads one pubkey per line from path, normalizing to lowercase
// with a "0x" prefix. An empty path yields an empty set, not an error.
func Load(path string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if path == "" {
		return out, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "keys: open pubkeys file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !pubkeyPattern.MatchString(line) {
			return nil, errors.Wrapf(ErrInvalidKey, "%q", line)
		}
		out[normalize(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "keys: read pubkeys file")
	}
	return out, nil
}

func normalize(key string) string {
	key = strings.ToLower(key)
	if !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	return key
}
