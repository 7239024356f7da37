package eddn

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the major.minor part of a game client version.
type Version struct {
	Major int
	Minor int
}

// DefaultMinGameVersion is the oldest client whose data is accepted.
var DefaultMinGameVersion = Version{Major: 4, Minor: 0}

// ParseVersion reads the leading major[.minor] components of a dotted version such as
// "4.0.0.1904". Trailing components are ignored.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("invalid game version %q", s)
	}
	v := Version{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("invalid game version %q", s)
		}
		v.Minor = minor
	}
	return v, nil
}

// Less reports whether v is strictly older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
