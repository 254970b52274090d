// Package runstate persists the coordinator's monotonic counters and
// write-once tracking sets across restarts, so a restarted instance never
// repeats an output id already claimed on disk.
package runstate

import (
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/atomic"
)

// Summary is the small run-summary snapshot written after every round.
type Summary struct {
	InterestingCnt uint64   `json:"interesting_cnt"`
	HangCnt        uint64   `json:"hang_cnt"`
	CrashCnt       uint64   `json:"crash_cnt"`
	Traced         []string `json:"traced"`
	Solved         []string `json:"solved"`
	AddrsSeen      []uint64 `json:"addrs_seen"`
}

// Manager owns the on-disk run_summary.json and the in-memory monotonic
// counters backing it.
type Manager struct {
	mu   sync.Mutex
	path string

	InterestingCnt *atomic.Uint64
	HangCnt        *atomic.Uint64
	CrashCnt       *atomic.Uint64
}

// New returns a Manager writing its snapshot at path, with counters reset
// to zero.
func New(path string) *Manager {
	return &Manager{
		path:           path,
		InterestingCnt: atomic.NewUint64(0),
		HangCnt:        atomic.NewUint64(0),
		CrashCnt:       atomic.NewUint64(0),
	}
}

// Load reads a prior run_summary.json, if present, and fast-forwards the
// counters so new output ids do not collide with ones already on disk. A
// missing file is not an error: the counters simply start at zero.
func (m *Manager) Load() (*Summary, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run summary %s: %w", m.path, err)
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("run summary %s is not valid JSON", m.path)
	}

	summary := &Summary{
		InterestingCnt: gjson.GetBytes(raw, "interesting_cnt").Uint(),
		HangCnt:        gjson.GetBytes(raw, "hang_cnt").Uint(),
		CrashCnt:       gjson.GetBytes(raw, "crash_cnt").Uint(),
	}
	for _, v := range gjson.GetBytes(raw, "traced").Array() {
		summary.Traced = append(summary.Traced, v.String())
	}
	for _, v := range gjson.GetBytes(raw, "solved").Array() {
		summary.Solved = append(summary.Solved, v.String())
	}
	for _, v := range gjson.GetBytes(raw, "addrs_seen").Array() {
		summary.AddrsSeen = append(summary.AddrsSeen, v.Uint())
	}

	m.InterestingCnt.Store(summary.InterestingCnt)
	m.HangCnt.Store(summary.HangCnt)
	m.CrashCnt.Store(summary.CrashCnt)

	return summary, nil
}

// Save writes the current counters plus the supplied traced/solved/
// addrs-seen sets to disk as a compact JSON snapshot, built incrementally
// with sjson to avoid a full struct marshal of potentially large sets.
func (m *Manager) Save(traced, solved []string, addrsSeen []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := "{}"
	var err error
	if doc, err = sjson.Set(doc, "interesting_cnt", m.InterestingCnt.Load()); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}
	if doc, err = sjson.Set(doc, "hang_cnt", m.HangCnt.Load()); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}
	if doc, err = sjson.Set(doc, "crash_cnt", m.CrashCnt.Load()); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}
	if doc, err = sjson.Set(doc, "traced", traced); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}
	if doc, err = sjson.Set(doc, "solved", solved); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}
	if doc, err = sjson.Set(doc, "addrs_seen", addrsSeen); err != nil {
		return fmt.Errorf("build run summary: %w", err)
	}

	if err := os.WriteFile(m.path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write run summary %s: %w", m.path, err)
	}
	return nil
}

// NextInteresting returns the next monotonic interesting-output id.
func (m *Manager) NextInteresting() uint64 { return m.InterestingCnt.Inc() - 1 }

// NextHang returns the next monotonic hang-output id.
func (m *Manager) NextHang() uint64 { return m.HangCnt.Inc() - 1 }

// NextCrash returns the next monotonic crash-output id.
func (m *Manager) NextCrash() uint64 { return m.CrashCnt.Inc() - 1 }
