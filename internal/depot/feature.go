package depot

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the three condition-node variants a trace line can describe.
type Kind int

const (
	KindUnknown Kind = iota
	KindBranch
	KindSwitch
)

// edgeTypePriority is the ordered substring-to-edge-type fallback used when a
// branch condition has no explicit pred@<n> annotation. Order matters: the
// first matching substring wins.
var edgeTypePriority = []struct {
	substr string
	code   int
}{
	{"strcmp", 42},
	{"strncmp", 43},
	{"memcmp", 44},
	{"phi", 45},
	{"call@", 46},
	{"constInst", 47},
}

const switchEdgeType = 48

var (
	rePredAt    = regexp.MustCompile(`pred@(\d+)`)
	reWidth     = regexp.MustCompile(`_i(\d+)`)
	reSwitchHdr = regexp.MustCompile(`^Switch_i(\d+)_(\d+)$`)
)

// Condition is the tagged variant spec.md describes as Branch/Switch/Unknown.
type Condition struct {
	Kind           Kind
	CondValue      bool // valid only when Kind == KindBranch
	EdgeType       int
	CondWidth      float64
	SuccessorCount int
}

// ParseCondition classifies a raw trace condition string into its tagged
// variant and derives edge_type/cond_width/successor_count.
func ParseCondition(s string) Condition {
	switch {
	case strings.HasPrefix(s, "Br_true_"):
		return parseBranch(s, true)
	case strings.HasPrefix(s, "Br_false_"):
		return parseBranch(s, false)
	case strings.HasPrefix(s, "Switch_"):
		return parseSwitch(s)
	default:
		return Condition{Kind: KindUnknown}
	}
}

func parseBranch(s string, condValue bool) Condition {
	edgeType := 0
	if m := rePredAt.FindStringSubmatch(s); m != nil {
		edgeType, _ = strconv.Atoi(m[1])
	} else {
		for _, p := range edgeTypePriority {
			if strings.Contains(s, p.substr) {
				edgeType = p.code
				break
			}
		}
	}

	width := 0
	if m := reWidth.FindStringSubmatch(s); m != nil {
		width, _ = strconv.Atoi(m[1])
	}

	return Condition{
		Kind:           KindBranch,
		CondValue:      condValue,
		EdgeType:       edgeType,
		CondWidth:      log2(width),
		SuccessorCount: 2,
	}
}

func parseSwitch(s string) Condition {
	m := reSwitchHdr.FindStringSubmatch(s)
	if m == nil {
		return Condition{Kind: KindUnknown}
	}
	width, _ := strconv.Atoi(m[1])
	caseNum, _ := strconv.Atoi(m[2])

	return Condition{
		Kind:           KindSwitch,
		EdgeType:       switchEdgeType,
		CondWidth:      log2(width),
		SuccessorCount: caseNum,
	}
}

// log2 clamps to 0 for non-positive inputs per spec.md §9's numerics note.
func log2(v int) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log2(float64(v))
}

// Feature builds the 5-vector [edge_type, cond_width, sibling_uncover,
// log2(min_dist), bb_hit[addr]] for a node.
func Feature(cond Condition, children int, minDist int, bbHit float64) []float64 {
	siblingUncover := float64(cond.SuccessorCount - children)
	return []float64{
		float64(cond.EdgeType),
		cond.CondWidth,
		siblingUncover,
		log2(minDist),
		bbHit,
	}
}
