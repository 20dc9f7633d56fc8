package model

import "time"

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

// Claim statuses.
const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusPending: {ClaimStatusApproved, ClaimStatusRejected},
}

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a claim may move from s to next.
// Approved and rejected are terminal.
func (s ClaimStatus) CanTransition(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MaxProofImages caps the attachments a single claim may carry.
const MaxProofImages = 3

// Claim is a user's assertion that a found item belongs to them.
type Claim struct {
	ID               string      `json:"id"`
	ItemID           string      `json:"item_id"`
	ClaimerID        string      `json:"claimer_id"`
	ProofDescription string      `json:"proof_description"`
	ProofImages      []string    `json:"proof_images"`
	Status           ClaimStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ItemClaim is a claim as the finder sees it, with the claimer's contact details.
type ItemClaim struct {
	Claim
	Claimer UserSummary `json:"claimer"`
}

// MyClaim is a claim as the claimer sees it, with the item and its finder.
type MyClaim struct {
	Claim
	ItemTitle      string      `json:"item_title"`
	ItemStatus     ItemStatus  `json:"item_status"`
	ItemFoundCity  string      `json:"item_found_city,omitempty"`
	ItemFoundState string      `json:"item_found_state,omitempty"`
	Finder         UserSummary `json:"finder"`
}
