package meetup

import (
	"strings"
	"time"
)

// ConfirmationPolicy controls how the proposer's own agreement is recorded.
type ConfirmationPolicy string

const (
	// ConfirmExplicit requires the proposer to confirm after the counterparty.
	ConfirmExplicit ConfirmationPolicy = "explicit"
	// ConfirmImplicit treats the proposal itself as the proposer's confirmation.
	ConfirmImplicit ConfirmationPolicy = "implicit"
)

// Policy holds the timing windows and tie-break options of the lifecycle.
type Policy struct {
	ProposalTTL             time.Duration
	CompletionWindow        time.Duration
	AppealWindow            time.Duration
	ProposerConfirmation    ConfirmationPolicy
	FinalizeOnBothCompleted bool
}

// DefaultPolicy returns the standard 3-day proposal and 7-day outcome windows.
func DefaultPolicy() Policy {
	return Policy{
		ProposalTTL:          72 * time.Hour,
		CompletionWindow:     7 * 24 * time.Hour,
		AppealWindow:         7 * 24 * time.Hour,
		ProposerConfirmation: ConfirmExplicit,
	}
}

// Event names a lifecycle event for audit and metrics.
type Event string

const (
	EventPropose           Event = "PROPOSE"
	EventConfirm           Event = "CONFIRM"
	EventCancel            Event = "CANCEL"
	EventWithdraw          Event = "WITHDRAW"
	EventDispute           Event = "DISPUTE"
	EventMarkCompleted     Event = "MARK_COMPLETED"
	EventAppeal            Event = "APPEAL"
	EventProposalExpired   Event = "PROPOSAL_EXPIRED"
	EventMeetupDayReached  Event = "MEETUP_DAY_REACHED"
	EventWindowClosed      Event = "COMPLETION_WINDOW_CLOSED"
	EventAppealsResolved   Event = "APPEALS_RESOLVED"
	EventAppealWindowEnded Event = "APPEAL_WINDOW_CLOSED"
	EventResolve           Event = "RESOLVE"
)

// NoticeKind classifies the chat message sent for an outcome.
type NoticeKind string

const (
	NoticeProposed          NoticeKind = "MEETUP_PROPOSED"
	NoticeConfirmed         NoticeKind = "MEETUP_CONFIRMED"
	NoticeScheduled         NoticeKind = "MEETUP_SCHEDULED"
	NoticeCancelled         NoticeKind = "MEETUP_CANCELLED"
	NoticeWithdrawn         NoticeKind = "MEETUP_WITHDRAWN"
	NoticeDisputed          NoticeKind = "MEETUP_DISPUTED"
	NoticeProposalExpired   NoticeKind = "PROPOSAL_EXPIRED"
	NoticeMeetupDay         NoticeKind = "MEETUP_DAY"
	NoticeCompletionMarked  NoticeKind = "COMPLETION_MARKED"
	NoticeCompleted         NoticeKind = "TRANSACTION_COMPLETED"
	NoticeUnsuccessful      NoticeKind = "TRANSACTION_UNSUCCESSFUL"
	NoticeAppealed          NoticeKind = "TRANSACTION_APPEALED"
	NoticeReopened          NoticeKind = "TRANSACTION_REOPENED"
	NoticeAppealWindowEnded NoticeKind = "APPEAL_WINDOW_CLOSED"
	NoticeResolved          NoticeKind = "DISPUTE_RESOLVED"
)

// Notice is a message the caller should deliver after persisting an outcome.
type Notice struct {
	Kind       NoticeKind
	SenderID   string
	ReceiverID string
}

// Outcome describes what a decision did to a transaction.
type Outcome struct {
	Event                Event
	Actor                string
	From                 Status
	To                   Status
	Notices              []Notice
	MarkConversationDone bool
}

// StatusChanged reports whether the decision moved the record to a new status.
func (o *Outcome) StatusChanged() bool {
	return o != nil && o.From != o.To
}

// Machine decides lifecycle transitions. Its methods never perform I/O; each
// mutates tx in place only when every guard holds, so callers pass a copy.
type Machine struct {
	policy Policy
}

// NewMachine builds a machine, filling zero windows from DefaultPolicy.
func NewMachine(policy Policy) *Machine {
	def := DefaultPolicy()
	if policy.ProposalTTL <= 0 {
		policy.ProposalTTL = def.ProposalTTL
	}
	if policy.CompletionWindow <= 0 {
		policy.CompletionWindow = def.CompletionWindow
	}
	if policy.AppealWindow <= 0 {
		policy.AppealWindow = def.AppealWindow
	}
	if policy.ProposerConfirmation != ConfirmImplicit {
		policy.ProposerConfirmation = ConfirmExplicit
	}
	return &Machine{policy: policy}
}

// Policy returns the effective policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

// ValidateProposal checks meetup details independent of any record.
func ValidateProposal(location string, date time.Time, now time.Time) error {
	if strings.TrimSpace(location) == "" {
		return validationErrorf("meetup location is required")
	}
	if date.IsZero() {
		return validationErrorf("meetup date is required")
	}
	if date.Before(now) {
		return validationErrorf("meetup date %s is in the past", date.UTC().Format(time.RFC3339))
	}
	return nil
}

// Propose sets new meetup details. A proposal on a proposed or scheduled record
// supersedes the previous one.
func (m *Machine) Propose(tx *Transaction, actorID, location string, date, now time.Time) (*Outcome, error) {
	if _, ok := tx.RoleOf(actorID); !ok {
		return nil, ErrUnauthorized
	}
	switch tx.Status {
	case StatusPending, StatusProposed, StatusScheduled:
	default:
		return nil, transitionErrorf("cannot propose a meetup while %s", tx.Status)
	}
	if err := ValidateProposal(location, date, now); err != nil {
		return nil, err
	}
	out := m.begin(tx, EventPropose, actorID)
	tx.ApplyMeetupDetails(strings.TrimSpace(location), date)
	tx.ProposedAt = timePtr(now)
	proposer := actorID
	tx.ProposedBy = &proposer
	tx.Status = StatusProposed
	return m.finish(tx, out, notify(NoticeProposed, actorID, tx.Counterparty(actorID))), nil
}

// Confirm records the actor's agreement to the current proposal. The record
// becomes scheduled once both flags are set.
func (m *Machine) Confirm(tx *Transaction, actorID string, now time.Time) (*Outcome, error) {
	role, ok := tx.RoleOf(actorID)
	if !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusProposed {
		return nil, transitionErrorf("cannot confirm while %s", tx.Status)
	}
	if tx.Confirmed(role) {
		return nil, transitionErrorf("already confirmed")
	}
	other := RoleSeller
	if role == RoleSeller {
		other = RoleBuyer
	}
	if tx.IsProposer(actorID) && !tx.Confirmed(other) {
		return nil, transitionErrorf("the proposer cannot confirm their own proposal")
	}

	out := m.begin(tx, EventConfirm, actorID)
	_ = tx.SetConfirmed(role, actorID, true)
	if m.policy.ProposerConfirmation == ConfirmImplicit && tx.ProposedBy != nil && !tx.IsProposer(actorID) {
		_ = tx.SetConfirmed(other, tx.PartyID(other), true)
	}
	counterparty := tx.Counterparty(actorID)
	if tx.BothConfirmed() {
		tx.Status = StatusScheduled
		return m.finish(tx, out, notify(NoticeScheduled, actorID, counterparty)), nil
	}
	return m.finish(tx, out, notify(NoticeConfirmed, actorID, counterparty)), nil
}

// Cancel drops the current proposal and returns the record to pending.
func (m *Machine) Cancel(tx *Transaction, actorID string, now time.Time) (*Outcome, error) {
	if _, ok := tx.RoleOf(actorID); !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusProposed && tx.Status != StatusScheduled {
		return nil, transitionErrorf("cannot cancel a meetup while %s", tx.Status)
	}
	out := m.begin(tx, EventCancel, actorID)
	tx.clearProposal()
	tx.Status = StatusPending
	return m.finish(tx, out, notify(NoticeCancelled, actorID, tx.Counterparty(actorID))), nil
}

// Withdraw abandons the negotiation permanently.
func (m *Machine) Withdraw(tx *Transaction, actorID string, now time.Time) (*Outcome, error) {
	if _, ok := tx.RoleOf(actorID); !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusProposed && tx.Status != StatusScheduled {
		return nil, transitionErrorf("cannot withdraw while %s", tx.Status)
	}
	out := m.begin(tx, EventWithdraw, actorID)
	tx.clearProposal()
	tx.Status = StatusCancelled
	tx.ClosedAt = timePtr(now)
	return m.finish(tx, out, notify(NoticeWithdrawn, actorID, tx.Counterparty(actorID))), nil
}

// Dispute freezes the record until a moderator resolves it.
func (m *Machine) Dispute(tx *Transaction, actorID, reason string, now time.Time) (*Outcome, error) {
	if _, ok := tx.RoleOf(actorID); !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusProposed && tx.Status != StatusScheduled {
		return nil, transitionErrorf("cannot dispute while %s", tx.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationErrorf("dispute reason is required")
	}
	out := m.begin(tx, EventDispute, actorID)
	tx.clearProposal()
	tx.DisputeReason = &reason
	tx.Status = StatusDisputed
	return m.finish(tx, out, notify(NoticeDisputed, actorID, tx.Counterparty(actorID))), nil
}

// MarkCompleted records the actor's statement that the exchange succeeded.
func (m *Machine) MarkCompleted(tx *Transaction, actorID string, now time.Time) (*Outcome, error) {
	role, ok := tx.RoleOf(actorID)
	if !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusMeetupDayPassed {
		return nil, transitionErrorf("cannot mark completed while %s", tx.Status)
	}
	if tx.Completed(role) {
		return nil, transitionErrorf("completion already marked")
	}
	out := m.begin(tx, EventMarkCompleted, actorID)
	tx.setCompleted(role)
	if m.policy.FinalizeOnBothCompleted && tx.BothCompleted() {
		m.complete(tx, now)
		return m.finish(tx, out, notifyBoth(tx, NoticeCompleted)...), nil
	}
	return m.finish(tx, out, notify(NoticeCompletionMarked, actorID, tx.Counterparty(actorID))), nil
}

// Appeal asks to reopen an unsuccessful outcome. The second party's appeal
// reopens the completion window in the same decision.
func (m *Machine) Appeal(tx *Transaction, actorID string, now time.Time) (*Outcome, error) {
	role, ok := tx.RoleOf(actorID)
	if !ok {
		return nil, ErrUnauthorized
	}
	if tx.Status != StatusUnsuccessful && tx.Status != StatusAppealed {
		return nil, transitionErrorf("cannot appeal while %s", tx.Status)
	}
	if !tx.IsOpen() || m.appealWindowElapsed(tx, now) {
		return nil, transitionErrorf("appeal window has closed")
	}
	if tx.Appealed(role) {
		return nil, transitionErrorf("already appealed")
	}
	out := m.begin(tx, EventAppeal, actorID)
	tx.setAppealed(role)
	tx.Status = StatusAppealed
	if tx.BothAppealed() {
		m.reopen(tx, now)
		return m.finish(tx, out, notifyBoth(tx, NoticeReopened)...), nil
	}
	return m.finish(tx, out, notify(NoticeAppealed, actorID, tx.Counterparty(actorID))), nil
}

// Advance applies the timer-driven transition that is due at now, if any. It
// returns nil when nothing is due, which makes repeated evaluation a no-op.
func (m *Machine) Advance(tx *Transaction, now time.Time) *Outcome {
	if !tx.IsOpen() {
		return nil
	}
	switch tx.Status {
	case StatusProposed:
		if tx.ProposedAt == nil || tx.BothConfirmed() || now.Before(tx.ProposedAt.Add(m.policy.ProposalTTL)) {
			return nil
		}
		out := m.begin(tx, EventProposalExpired, SystemActor)
		tx.clearProposal()
		tx.Status = StatusPending
		out.MarkConversationDone = true
		return m.finish(tx, out, notifyBoth(tx, NoticeProposalExpired)...)

	case StatusScheduled:
		if tx.MeetupDate == nil || now.Before(*tx.MeetupDate) {
			return nil
		}
		out := m.begin(tx, EventMeetupDayReached, SystemActor)
		tx.clearProposal()
		tx.MeetupDayReachedAt = timePtr(now)
		tx.Status = StatusMeetupDayPassed
		return m.finish(tx, out, notifyBoth(tx, NoticeMeetupDay)...)

	case StatusMeetupDayPassed:
		if m.policy.FinalizeOnBothCompleted && tx.BothCompleted() {
			out := m.begin(tx, EventWindowClosed, SystemActor)
			m.complete(tx, now)
			return m.finish(tx, out, notifyBoth(tx, NoticeCompleted)...)
		}
		if tx.MeetupDayReachedAt == nil || now.Before(tx.MeetupDayReachedAt.Add(m.policy.CompletionWindow)) {
			return nil
		}
		out := m.begin(tx, EventWindowClosed, SystemActor)
		if tx.BothCompleted() {
			m.complete(tx, now)
			return m.finish(tx, out, notifyBoth(tx, NoticeCompleted)...)
		}
		tx.UnsuccessfulAt = timePtr(now)
		tx.Status = StatusUnsuccessful
		return m.finish(tx, out, notifyBoth(tx, NoticeUnsuccessful)...)

	case StatusAppealed:
		if tx.BothAppealed() {
			out := m.begin(tx, EventAppealsResolved, SystemActor)
			m.reopen(tx, now)
			return m.finish(tx, out, notifyBoth(tx, NoticeReopened)...)
		}
		fallthrough

	case StatusUnsuccessful:
		if !m.appealWindowElapsed(tx, now) {
			return nil
		}
		out := m.begin(tx, EventAppealWindowEnded, SystemActor)
		tx.Status = StatusUnsuccessful
		tx.ClosedAt = timePtr(now)
		return m.finish(tx, out, notifyBoth(tx, NoticeAppealWindowEnded)...)
	}
	return nil
}

// Due reports whether Advance would change tx at now.
func (m *Machine) Due(tx *Transaction, now time.Time) bool {
	return m.Advance(tx.Clone(), now) != nil
}

// Resolve closes a disputed record as completed or cancelled and returns the
// fields a raw status write must carry.
func (m *Machine) Resolve(tx *Transaction, resolution Status, now time.Time) (StatusFields, error) {
	if tx.Status != StatusDisputed {
		return StatusFields{}, transitionErrorf("only disputed transactions can be resolved, got %s", tx.Status)
	}
	fields := StatusFields{ClosedAt: timePtr(now), DisputeReason: cloneString(tx.DisputeReason)}
	switch resolution {
	case StatusCompleted:
		fields.CompletedAt = timePtr(now)
	case StatusCancelled:
	default:
		return StatusFields{}, validationErrorf("resolution must be %s or %s", StatusCompleted, StatusCancelled)
	}
	return fields, nil
}

func (m *Machine) appealWindowElapsed(tx *Transaction, now time.Time) bool {
	return tx.UnsuccessfulAt != nil && !now.Before(tx.UnsuccessfulAt.Add(m.policy.AppealWindow))
}

func (m *Machine) complete(tx *Transaction, now time.Time) {
	tx.Status = StatusCompleted
	tx.CompletedAt = timePtr(now)
	tx.ClosedAt = timePtr(now)
}

func (m *Machine) reopen(tx *Transaction, now time.Time) {
	tx.clearOutcomeFlags()
	tx.UnsuccessfulAt = nil
	tx.MeetupDayReachedAt = timePtr(now)
	tx.Status = StatusMeetupDayPassed
}

func (m *Machine) begin(tx *Transaction, ev Event, actorID string) *Outcome {
	return &Outcome{Event: ev, Actor: actorID, From: tx.Status}
}

func (m *Machine) finish(tx *Transaction, out *Outcome, notices ...Notice) *Outcome {
	out.To = tx.Status
	out.Notices = notices
	return out
}

func notify(kind NoticeKind, sender, receiver string) Notice {
	return Notice{Kind: kind, SenderID: sender, ReceiverID: receiver}
}

func notifyBoth(tx *Transaction, kind NoticeKind) []Notice {
	return []Notice{
		notify(kind, SystemActor, tx.BuyerID),
		notify(kind, SystemActor, tx.SellerID),
	}
}
