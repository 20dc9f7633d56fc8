package ledger

import (
	"context"
	"log/slog"
	"time"
)

// Approval describes a committed approval.
type Approval struct {
	ClaimID    string
	ItemID     string
	FinderID   string
	ClaimerID  string
	Rejected   int64
	ApprovedAt time.Time
}

// ApprovalHook is called once per item, after the approval transaction
// commits. It is the attachment point for opening a finder/claimer chat.
type ApprovalHook interface {
	ClaimApproved(ctx context.Context, a Approval)
}

type nopHook struct{}

func (nopHook) ClaimApproved(context.Context, Approval) {}

// LogHook logs approvals so a chat collaborator can pick them up.
type LogHook struct {
	Logger *slog.Logger
}

func (h LogHook) ClaimApproved(ctx context.Context, a Approval) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "handoff ready",
		"claim", a.ClaimID, "item", a.ItemID,
		"finder", a.FinderID, "claimer", a.ClaimerID,
		"rejected_rivals", a.Rejected)
}
