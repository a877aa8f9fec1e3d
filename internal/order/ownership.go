package order

import (
	"strings"

	"pos-core/internal/models"
)

// Placeholder owner labels left behind by the desktop cashier or by rows
// predating staff ids. A placeholder is not a real claim on the table.
const (
	PlaceholderUnassigned = "unassigned"
	PlaceholderCounter    = "counter staff"
)

// OwnershipDecision says who owns the table after a batch submission.
type OwnershipDecision struct {
	StaffID   int64
	StaffName string
	Transfer  bool
}

// ResolveOwner arbitrates table ownership for a batch-add. The submitting
// waiter claims free or ownerless tables; a table already held by another
// real staff member keeps its owner, and the batch is accepted anyway.
// Ownership and order acceptance are independent.
//
// Staff id 0 is the authoritative "unassigned" sentinel. The label check
// only covers legacy rows written before staff ids existed.
func ResolveOwner(t models.Table, submitter models.StaffRef) OwnershipDecision {
	claim := OwnershipDecision{StaffID: submitter.ID, StaffName: submitter.Name, Transfer: true}

	if t.Status == models.TableFree {
		return claim
	}
	if t.StaffID == 0 {
		return claim
	}
	if isPlaceholderName(t.StaffName) {
		return claim
	}

	// A real, different owner keeps the table.
	return OwnershipDecision{StaffID: t.StaffID, StaffName: t.StaffName, Transfer: false}
}

func isPlaceholderName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PlaceholderUnassigned, PlaceholderCounter:
		return true
	}
	return false
}
