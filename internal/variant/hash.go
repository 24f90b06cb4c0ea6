package variant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// StringHash is the 32-bit hash of a string identifier. Variable keys and
// component type names travel on the wire as StringHash values.
type StringHash uint32

// Hash computes the StringHash of s.
func Hash(s string) StringHash {
	return StringHash(murmur3.Sum32([]byte(s)))
}

// String renders the hash as "0x%08x".
func (h StringHash) String() string {
	return fmt.Sprintf("0x%08x", uint32(h))
}

// ParseStringHash accepts either a "0x"-prefixed hex hash or a plain
// identifier, which is hashed.
func ParseStringHash(s string) StringHash {
	if strings.HasPrefix(s, "0x") && len(s) == 10 {
		if n, err := strconv.ParseUint(s[2:], 16, 32); err == nil {
			return StringHash(n)
		}
	}
	return Hash(s)
}
