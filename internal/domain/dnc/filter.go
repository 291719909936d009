package dnc

import (
	"fmt"
	"time"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// FilterResult is the outcome of one filtering pass. It has no identity and
// is never stored; callers copy the counters into their own records.
type FilterResult struct {
	Allowed           []Contact `json:"allowed"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	DNCBlocked        int       `json:"dnc_blocked"`
	OriginalCount     int       `json:"original_count"`
}

// Summary renders the counters for display
func (r *FilterResult) Summary() string {
	return fmt.Sprintf("%d contacts eligible; %d duplicates removed; %d blocked by DNC",
		len(r.Allowed), r.DuplicatesRemoved, r.DNCBlocked)
}

// Balanced checks the conservation law between the counters
func (r *FilterResult) Balanced() bool {
	return len(r.Allowed)+r.DuplicatesRemoved+r.DNCBlocked == r.OriginalCount
}

// ErrInvalidContactList and ErrInvalidRegistry are the precondition failures of Filter.
var (
	ErrInvalidContactList = errors.NewInvalidArgumentError("INVALID_CONTACT_LIST", "contacts must be a list")
	ErrInvalidRegistry    = errors.NewInvalidArgumentError("INVALID_DNC_REGISTRY", "dnc registry snapshot is required")
)

// Filter deduplicates contacts and removes those blocked by an effective entry
// of registry at now. A nil contacts slice or registry is a contract violation;
// an empty slice is a valid input. Inputs are never mutated.
//
// Deduplication runs first, keyed by phone with an email fallback, keeping the
// first occurrence. Blocking then runs over the survivors in input order.
func Filter(contacts []Contact, clientID string, registry *Snapshot, now time.Time) (*FilterResult, error) {
	if contacts == nil {
		return nil, ErrInvalidContactList
	}
	if registry == nil {
		return nil, ErrInvalidRegistry
	}

	result := &FilterResult{
		Allowed:       make([]Contact, 0, len(contacts)),
		OriginalCount: len(contacts),
	}

	seen := make(map[string]struct{}, len(contacts))
	deduped := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if key, ok := c.DedupKey(); ok {
			if _, dup := seen[key]; dup {
				result.DuplicatesRemoved++
				continue
			}
			seen[key] = struct{}{}
		}
		deduped = append(deduped, c)
	}

	blocklist := registry.Blocklist(clientID, now)
	for _, c := range deduped {
		if blocklist.Blocks(c) {
			result.DNCBlocked++
			continue
		}
		result.Allowed = append(result.Allowed, c)
	}

	return result, nil
}

// ComplianceFilter binds Filter to a clock so callers do not pass "now" around.
type ComplianceFilter struct {
	clock Clock
}

// NewComplianceFilter creates a filter reading time from clock
func NewComplianceFilter(clock Clock) *ComplianceFilter {
	if clock == nil {
		clock = RealClock{}
	}
	return &ComplianceFilter{clock: clock}
}

// Filter runs Filter at the clock's current time
func (f *ComplianceFilter) Filter(contacts []Contact, clientID string, registry *Snapshot) (*FilterResult, error) {
	return Filter(contacts, clientID, registry, f.clock.Now())
}
