package interaction

import (
	"errors"

	"github.com/ruteri/wallet-background/router"
)

// Route is the router route served by this package.
const Route = "interaction"

var (
	GetPendingInteractionsKind = router.NewKind[GetPendingInteractionsMsg]("GetPendingInteractions")
	ApproveInteractionKind     = router.NewKind[ApproveInteractionMsg]("ApproveInteraction")
	RejectInteractionKind      = router.NewKind[RejectInteractionMsg]("RejectInteraction")
)

// GetPendingInteractionsMsg lists the requests awaiting a decision.
type GetPendingInteractionsMsg struct{}

func (m *GetPendingInteractionsMsg) ValidateBasic() error { return nil }

// ApproveInteractionMsg approves the pending request ID.
type ApproveInteractionMsg struct {
	ID string `json:"id"`
}

func (m *ApproveInteractionMsg) ValidateBasic() error {
	if m.ID == "" {
		return errors.New("id is empty")
	}
	return nil
}

// RejectInteractionMsg rejects the pending request ID.
type RejectInteractionMsg struct {
	ID string `json:"id"`
}

func (m *RejectInteractionMsg) ValidateBasic() error {
	if m.ID == "" {
		return errors.New("id is empty")
	}
	return nil
}
