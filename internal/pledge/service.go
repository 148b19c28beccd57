package pledge

import (
	"context"
	"errors"
	"fmt"

	"ms-membership/internal/database"
	"ms-membership/internal/gateway"
	"ms-membership/internal/models"
	"ms-membership/internal/utils"

	"ms-membership/internal/logger"
)

// errPledgeInProgress reports that another invocation holds the reference
// lock for the same order reference.
var errPledgeInProgress = errors.New("pledge already in progress")

type OrderDBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByRef(ctx context.Context, ref string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
}

type MembershipDBLayer interface {
	CreateMemberships(ctx context.Context, memberships []models.Membership) error
	GetMembershipsByOrder(ctx context.Context, orderID string) ([]models.Membership, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RefLock interface {
	LockReference(ref, orderID string) (bool, error)
	UnlockReference(ref, orderID string) error
}

type EventPublisher interface {
	PublishPledgeCompleted(order models.Order, memberNumbers []string) error
	PublishPledgeFailed(order models.Order, msg string) error
}

type Notifier interface {
	SendPledgeConfirmation(ctx context.Context, email string, memberNumbers []string) error
}

type CardGenerator interface {
	GenerateCardQR(m models.Membership) ([]byte, error)
}

// Service is the pledge-to-membership workflow: at most one charge per
// order reference, one PAID order plus N memberships per successful
// payment, and a structured result on every path.
type Service struct {
	Orders      OrderDBLayer
	Memberships MembershipDBLayer
	Tx          TxRunner
	Gateway     gateway.Gateway
	Lock        RefLock
	Events      EventPublisher
	Notifier    Notifier
	Cards       CardGenerator
	Gen         *utils.Generator
	Logger      *logger.Logger
}

func NewService(
	orders OrderDBLayer,
	memberships MembershipDBLayer,
	tx TxRunner,
	gw gateway.Gateway,
	lock RefLock,
	events EventPublisher,
	notifier Notifier,
	cards CardGenerator,
	gen *utils.Generator,
	log *logger.Logger,
) *Service {
	return &Service{
		Orders:      orders,
		Memberships: memberships,
		Tx:          tx,
		Gateway:     gw,
		Lock:        lock,
		Events:      events,
		Notifier:    notifier,
		Cards:       cards,
		Gen:         gen,
		Logger:      log,
	}
}

// issueAttempts bounds the member-number regeneration loop on unique
// conflicts. A collision is astronomically unlikely; two in a row even
// more so.
const issueAttempts = 3

// Submit runs the pledge workflow. It never panics across the boundary;
// every outcome is a PledgeResult.
func (s *Service) Submit(ctx context.Context, req models.PledgeRequest) models.PledgeResult {
	if msg := validate(req); msg != "" {
		return models.PledgeFailure(msg)
	}

	ref := req.OrderRef
	if ref == "" {
		ref = s.Gen.OrderRef()
	}
	s.Logger.LogPledge("SUBMIT", ref, fmt.Sprintf("amount=%d %s participants=%d", req.Amount, req.Currency, len(req.Participants)))

	// Step 1: idempotency check. A reference that already reached PAID is
	// a duplicate submission: answer with the original outcome, never
	// touch the gateway again.
	existing, err := s.Orders.GetOrderByRef(ctx, ref)
	if err != nil {
		s.Logger.Error("PLEDGE", fmt.Sprintf("order lookup for %s failed: %v", ref, err))
		return models.PledgeFailure("order lookup failed")
	}
	if existing != nil && existing.IsPaid() {
		s.Logger.LogPledge("REPLAY", ref, "order already paid, returning recorded outcome")
		return s.completedResult(ctx, *existing)
	}

	order := models.NewOrder(s.Gen.OrderID(), ref, req.Amount, req.Currency, req.Cardholder, req.Participants, req.Tier, req.Months, s.Gen.Now())

	// In-flight duplicate suppression. The unique index on order_ref is
	// the authoritative guard; the lock rejects the race before any
	// gateway call happens. The owner token is pinned here because the
	// resume path below reassigns order.
	if s.Lock != nil {
		lockOwner := order.OrderID
		ok, err := s.Lock.LockReference(ref, lockOwner)
		if err != nil {
			s.Logger.Error("PLEDGE", fmt.Sprintf("reference lock for %s failed: %v", ref, err))
			return models.PledgeFailure("reference lock failed")
		}
		if !ok {
			s.Logger.Warn("PLEDGE", fmt.Sprintf("pledge %s already in progress", ref))
			return models.PledgeFailure("pledge already in progress")
		}
		defer func() {
			if err := s.Lock.UnlockReference(ref, lockOwner); err != nil {
				s.Logger.Warn("PLEDGE", fmt.Sprintf("failed to release lock for %s: %v", ref, err))
			}
		}()
	}

	// Step 2: provisional persistence. The PENDING order is durable before
	// the gateway is ever called, so a crash mid-charge leaves a record to
	// reconcile against.
	if existing != nil {
		// A PENDING or FAILED row for this reference is a retry of an
		// uncharged attempt: resume with the durable order.
		order = *existing
		s.Logger.LogPledge("RESUME", ref, fmt.Sprintf("resuming %s order %s", order.Status, order.OrderID))
	} else if err := s.Orders.CreateOrder(ctx, order); err != nil {
		if database.IsUniqueViolation(err) {
			s.Logger.Warn("PLEDGE", fmt.Sprintf("concurrent submission for %s lost the insert race", ref))
			return models.PledgeFailure("pledge already in progress")
		}
		s.Logger.Error("PLEDGE", fmt.Sprintf("failed to persist pending order for %s: %v", ref, err))
		return models.PledgeFailure("failed to create order")
	}

	// Step 3: the external charge. Not retried here; retry policy belongs
	// to the gateway adapter.
	payResult, err := s.Gateway.Pay(ctx, gateway.PayRequest{
		Prime:       req.Prime,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Details:     fmt.Sprintf("%s membership x%d", req.Tier, len(req.Participants)),
		Cardholder:  req.Cardholder,
		OrderRef:    ref,
		PaymentType: req.PaymentType,
		Installment: req.Installment,
	})

	// Step 4: gateway decline or transport failure. Expected business
	// outcome: mark FAILED, no memberships.
	if err != nil || !payResult.OK {
		msg := "payment failed"
		if err != nil {
			s.Logger.Error("GATEWAY", fmt.Sprintf("charge for %s errored: %v", ref, err))
		} else {
			msg = payResult.Msg
			s.Logger.LogPledge("DECLINED", ref, msg)
		}
		if failErr := order.MarkAsFailed(); failErr != nil {
			// Only possible if the order were PAID, which this path never is.
			s.Logger.Error("PLEDGE", fmt.Sprintf("invalid transition for %s: %v", ref, failErr))
			return models.PledgeFailure(msg)
		}
		if dbErr := s.Orders.UpdateOrder(ctx, order); dbErr != nil {
			s.Logger.Error("PLEDGE", fmt.Sprintf("failed to record failure for %s: %v", ref, dbErr))
		}
		s.publishFailed(order, msg)
		return models.PledgeFailure(msg)
	}

	// Step 5: payment confirmed. Persist the PAID order on its own first:
	// once the money moved, the paid state must be durable even if
	// membership issuance fails right after.
	if err := order.ConfirmPayment(s.Gen.Now()); err != nil {
		s.Logger.Error("PLEDGE", fmt.Sprintf("invalid transition for %s: %v", ref, err))
		return models.PledgeFailure("order in invalid state")
	}
	if err := s.Orders.UpdateOrder(ctx, order); err != nil {
		// The dangerous window: charged but not recorded. Nothing here can
		// undo the charge; scream and surface.
		s.Logger.Error("PLEDGE", fmt.Sprintf("CHARGED BUT UNRECORDED: order %s ref %s rec_trade_id %s: %v",
			order.OrderID, ref, payResult.RecTradeID, err))
		return models.PledgeFailure("payment received but order could not be recorded; contact support")
	}

	// Step 6: membership fan-out, one per participant, atomically.
	memberNumbers, err := s.issueMemberships(ctx, order)
	if err != nil {
		// Recoverable: the PAID order is durable and issuance is
		// replayable via ReissueMemberships.
		s.Logger.Error("PLEDGE", fmt.Sprintf("PAID ORDER WITHOUT MEMBERSHIPS: order %s ref %s needs reissue: %v",
			order.OrderID, ref, err))
		return models.PledgeFailure("payment received; membership issuance pending, please retry")
	}

	// Step 7: best-effort notification, detached from the result.
	s.notifyAsync(order, memberNumbers)

	s.Logger.LogPledge("COMPLETED", ref, fmt.Sprintf("order %s, %d memberships", order.OrderID, len(memberNumbers)))
	return models.PledgeSuccess(order.OrderID, memberNumbers)
}

// ReissueMemberships replays membership issuance for a PAID order that has
// no membership rows, the recovery path for a post-payment persistence
// failure. The pledged tier and months come from the durable order, so a
// replay is deterministic regardless of who triggers it. It is idempotent:
// existing memberships are returned as-is.
func (s *Service) ReissueMemberships(ctx context.Context, ref string) (models.PledgeResult, error) {
	order, err := s.Orders.GetOrderByRef(ctx, ref)
	if err != nil {
		return models.PledgeResult{}, fmt.Errorf("order lookup for %s failed: %w", ref, err)
	}
	if order == nil {
		return models.PledgeResult{}, fmt.Errorf("no order with reference %s", ref)
	}
	if !order.IsPaid() {
		return models.PledgeResult{}, fmt.Errorf("order %s is %s, only paid orders can be reissued", ref, order.Status)
	}

	existing, err := s.Memberships.GetMembershipsByOrder(ctx, order.OrderID)
	if err != nil {
		return models.PledgeResult{}, fmt.Errorf("membership lookup for order %s failed: %w", order.OrderID, err)
	}
	if len(existing) > 0 {
		return models.PledgeSuccess(order.OrderID, memberNumbersOf(existing)), nil
	}

	s.Logger.LogPledge("REISSUE", ref, fmt.Sprintf("issuing memberships for paid order %s", order.OrderID))
	memberNumbers, err := s.issueUnderLock(ctx, *order)
	if err != nil {
		return models.PledgeResult{}, fmt.Errorf("reissue for order %s failed: %w", order.OrderID, err)
	}
	s.notifyAsync(*order, memberNumbers)
	return models.PledgeSuccess(order.OrderID, memberNumbers), nil
}

// issueUnderLock finishes issuance for a PAID order outside the Submit
// charge path. The reference lock serializes concurrent replays of the
// same reference so only one of them can fan out; issueMemberships
// re-checks the rows inside its transaction as the second guard.
func (s *Service) issueUnderLock(ctx context.Context, order models.Order) ([]string, error) {
	if s.Lock != nil {
		ok, err := s.Lock.LockReference(order.OrderRef, order.OrderID)
		if err != nil {
			return nil, fmt.Errorf("reference lock for %s failed: %w", order.OrderRef, err)
		}
		if !ok {
			return nil, errPledgeInProgress
		}
		defer func() {
			if err := s.Lock.UnlockReference(order.OrderRef, order.OrderID); err != nil {
				s.Logger.Warn("PLEDGE", fmt.Sprintf("failed to release lock for %s: %v", order.OrderRef, err))
			}
		}()
	}
	return s.issueMemberships(ctx, order)
}

// issueMemberships creates one membership per participant inside a single
// transaction, with tier and validity taken from the order. The row count
// is re-checked inside the transaction: if another invocation already
// issued for this order, its numbers are returned instead of inserting a
// second batch. A member-number collision rolls the whole batch back and
// retries with fresh numbers.
func (s *Service) issueMemberships(ctx context.Context, order models.Order) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		memberships := make([]models.Membership, 0, len(order.Participants))
		for _, name := range order.Participants {
			m := models.NewMembership(
				s.Gen.MembershipID(),
				s.Gen.MemberNumber(),
				order.OrderID,
				order.Tier,
				order.Months,
				name,
				order.PurchaserEmail,
				s.Gen.Now(),
			)
			if s.Cards != nil {
				qr, err := s.Cards.GenerateCardQR(m)
				if err != nil {
					return nil, fmt.Errorf("failed to generate card QR for %s: %w", m.MemberNo, err)
				}
				m.CardQR = qr
			}
			memberships = append(memberships, m)
		}

		var alreadyIssued []string
		err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
			existing, err := s.Memberships.GetMembershipsByOrder(ctx, order.OrderID)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				alreadyIssued = memberNumbersOf(existing)
				return nil
			}
			return s.Memberships.CreateMemberships(ctx, memberships)
		})
		if err == nil {
			if alreadyIssued != nil {
				return alreadyIssued, nil
			}
			return memberNumbersOf(memberships), nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
		s.Logger.Warn("PLEDGE", fmt.Sprintf("member number collision for order %s, retrying", order.OrderID))
	}
	return nil, fmt.Errorf("member number collisions exhausted retries: %w", lastErr)
}

// completedResult rebuilds the original success response for a replayed
// submission. A paid order with no membership rows is the crash window
// between payment and issuance: finish the job now, under the reference
// lock so two concurrent replays cannot both fan out.
func (s *Service) completedResult(ctx context.Context, order models.Order) models.PledgeResult {
	memberships, err := s.Memberships.GetMembershipsByOrder(ctx, order.OrderID)
	if err != nil {
		s.Logger.Error("PLEDGE", fmt.Sprintf("membership lookup for order %s failed: %v", order.OrderID, err))
		return models.PledgeFailure("membership lookup failed")
	}
	if len(memberships) == 0 {
		memberNumbers, err := s.issueUnderLock(ctx, order)
		if errors.Is(err, errPledgeInProgress) {
			s.Logger.Warn("PLEDGE", fmt.Sprintf("replay for %s lost the lock to another invocation", order.OrderRef))
			return models.PledgeFailure("pledge already in progress")
		}
		if err != nil {
			s.Logger.Error("PLEDGE", fmt.Sprintf("replay issuance for order %s failed: %v", order.OrderID, err))
			return models.PledgeFailure("payment received; membership issuance pending, please retry")
		}
		s.notifyAsync(order, memberNumbers)
		return models.PledgeSuccess(order.OrderID, memberNumbers)
	}
	return models.PledgeSuccess(order.OrderID, memberNumbersOf(memberships))
}

// notifyAsync fires the confirmation email and the pledge event without
// the caller waiting on either. Failures are logged and discarded.
func (s *Service) notifyAsync(order models.Order, memberNumbers []string) {
	if s.Events != nil {
		if err := s.Events.PublishPledgeCompleted(order, memberNumbers); err != nil {
			s.Logger.Warn("NOTIFY", fmt.Sprintf("pledge event for %s not published: %v", order.OrderRef, err))
		}
	}
	if s.Notifier == nil {
		return
	}
	go func() {
		if err := s.Notifier.SendPledgeConfirmation(context.Background(), order.PurchaserEmail, memberNumbers); err != nil {
			s.Logger.Warn("NOTIFY", fmt.Sprintf("confirmation for %s not sent: %v", order.OrderRef, err))
		}
	}()
}

func (s *Service) publishFailed(order models.Order, msg string) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishPledgeFailed(order, msg); err != nil {
		s.Logger.Warn("NOTIFY", fmt.Sprintf("failure event for %s not published: %v", order.OrderRef, err))
	}
}

func validate(req models.PledgeRequest) string {
	switch {
	case req.Prime == "":
		return "missing payment token"
	case req.Amount <= 0:
		return "amount must be positive"
	case len(req.Participants) == 0:
		return "at least one participant required"
	case req.Months <= 0:
		return "months must be positive"
	case req.Cardholder.Email == "":
		return "purchaser email required"
	}
	return ""
}

func memberNumbersOf(memberships []models.Membership) []string {
	numbers := make([]string, len(memberships))
	for i, m := range memberships {
		numbers[i] = m.MemberNo
	}
	return numbers
}
