package construct

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	maxLogicalIDLen = 255
	hashLen         = 8

	// hiddenID is dropped from both the hash and the human part.
	hiddenID = "Default"
	// hiddenFromHumanID is hashed but not shown.
	hiddenFromHumanID = "Resource"
)

var nonAlphaNum = regexp.MustCompile(`[^A-Za-z0-9]`)

// RemoveNonAlphanumeric strips every character CloudFormation does not allow
// in a logical ID.
func RemoveNonAlphanumeric(s string) string {
	return nonAlphaNum.ReplaceAllString(s, "")
}

// LogicalID derives a stable CloudFormation logical ID from a construct path
// relative to its stack. A single-component path maps to its alphanumeric
// form; longer paths get an 8 character hash suffix so that different paths
// with the same letters never collide.
func LogicalID(path []string) string {
	var components []string
	for _, c := range path {
		if c != hiddenID {
			components = append(components, c)
		}
	}
	if len(components) == 0 {
		return ""
	}

	if len(components) == 1 {
		top := RemoveNonAlphanumeric(components[0])
		if len(top) <= maxLogicalIDLen {
			return top
		}
	}

	sum := md5.Sum([]byte(strings.Join(components, "/")))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))[:hashLen]

	var human []string
	for _, c := range removeDupes(components) {
		if c == hiddenFromHumanID {
			continue
		}
		human = append(human, RemoveNonAlphanumeric(c))
	}
	prefix := strings.Join(human, "")
	if len(prefix) > maxLogicalIDLen-hashLen {
		prefix = prefix[:maxLogicalIDLen-hashLen]
	}
	return prefix + hash
}

// removeDupes collapses consecutive repeated components, so "Vpc/Vpc/Subnet"
// reads "VpcSubnet".
func removeDupes(path []string) []string {
	var out []string
	for _, c := range path {
		if len(out) == 0 || !strings.HasSuffix(out[len(out)-1], c) {
			out = append(out, c)
		}
	}
	return out
}
