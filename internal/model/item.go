package model

import "time"

// ItemStatus is the lifecycle state of a found item.
type ItemStatus string

// Item statuses.
const (
	ItemStatusFound    ItemStatus = "found"
	ItemStatusClaimed  ItemStatus = "claimed"
	ItemStatusResolved ItemStatus = "resolved"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusFound:   {ItemStatusClaimed},
	ItemStatusClaimed: {ItemStatusResolved},
}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusFound, ItemStatusClaimed, ItemStatusResolved:
		return true
	}
	return false
}

// CanTransition reports whether an item may move from s to next.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Item is something a finder posted. Only items in ItemStatusFound accept claims.
type Item struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	FoundCity   string     `json:"found_city,omitempty"`
	FoundState  string     `json:"found_state,omitempty"`
	Status      ItemStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	OwnerName string `json:"owner_name,omitempty"`
}
