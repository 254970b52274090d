// Package seedname parses and builds the AFL-style "id:<digits>,..." seed
// filenames the coordinator reads from the fuzzer queue and writes to its
// own output directories.
package seedname

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reLeadingID = regexp.MustCompile(`^id[:=](\d+)`)
	reSrcID     = regexp.MustCompile(`^id:(\d+),.*$`)
)

// ExtractID returns the leading id embedded in a seed filename (decimal,
// without leading zeros), or "-1" if the name does not start with the
// expected id marker.
func ExtractID(name string) string {
	m := reLeadingID.FindStringSubmatch(name)
	if m == nil {
		return "-1"
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "-1"
	}
	return strconv.Itoa(n)
}

// SourceID parses the originating seed id from a generated testcase's
// source-seed name, matching "^id:(\d+),.*$", or "-1" if absent.
func SourceID(seedName string) string {
	m := reSrcID.FindStringSubmatch(seedName)
	if m == nil {
		return "-1"
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "-1"
	}
	return strconv.Itoa(n)
}

// HasNewCoverageMarker reports whether the seed name carries the fuzzer's
// "+cov" suffix marker.
func HasNewCoverageMarker(name string) bool {
	return strings.Contains(name, "+cov")
}

// IsOriginal reports whether the seed name carries the fuzzer's "orig:"
// initial-seed marker.
func IsOriginal(name string) bool {
	return strings.Contains(name, "orig:")
}

// Build constructs the monotonic output filename
// "id:%06d,src:<srcid>,op:<op>" the coordinator writes into its
// queue/hangs/crashes directories.
func Build(id uint64, srcID string, op string) string {
	return fmt.Sprintf("id:%06d,src:%s,op:%s", id, srcID, op)
}

// ParseSeqNum extracts the numeric portion of a Build-formatted name's
// leading id, returned as an int for ordering checks in tests.
func ParseSeqNum(name string) (int, error) {
	id := ExtractID(name)
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("seed name %q has non-numeric id: %w", name, err)
	}
	return n, nil
}
