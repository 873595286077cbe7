package store

// ClaimResult reports the outcome of a conditional status advance: it is
// the sole coordination primitive agents use instead of distributed
// locking (see ProjectRepository.AdvanceStatus).
type ClaimResult string

const (
	Claimed      ClaimResult = "claimed"
	NotClaimed   ClaimResult = "not_claimed"
	NoSuchProject ClaimResult = "no_such_project"
)
