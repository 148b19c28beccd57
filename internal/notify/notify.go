package notify

import "context"

// Notifier informs the purchaser after a successful pledge. Fire and
// forget: the workflow dispatches it detached and only logs failures.
type Notifier interface {
	SendPledgeConfirmation(ctx context.Context, email string, memberNumbers []string) error
}
