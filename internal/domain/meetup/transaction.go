package meetup

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a meetup transaction.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProposed        Status = "PROPOSED"
	StatusScheduled       Status = "SCHEDULED"
	StatusMeetupDayPassed Status = "MEETUP_DAY_PASSED"
	StatusCompleted       Status = "COMPLETED"
	StatusUnsuccessful    Status = "UNSUCCESSFUL"
	StatusAppealed        Status = "APPEALED"
	StatusCancelled       Status = "CANCELLED"
	StatusDisputed        Status = "DISPUTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProposed, StatusScheduled, StatusMeetupDayPassed,
		StatusCompleted, StatusUnsuccessful, StatusAppealed, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Role identifies which side of the negotiation an actor is on.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID    string
	Roles []string
}

// ActorString formats the actor for audit records.
func (a Actor) ActorString() string {
	if a.ID == "" || a.ID == SystemActor {
		return "system"
	}
	return "user:" + a.ID
}

// SystemActor is used for transitions driven by the countdown monitor.
const SystemActor = "system"

// Transaction is one buyer/seller meetup negotiation for a product.
// "User" flags belong to the buyer, "other user" flags to the seller.
type Transaction struct {
	ID                             int64      `json:"id"`
	TransactionID                  uuid.UUID  `json:"transaction_id"`
	ProductID                      *string    `json:"product_id,omitempty"`
	BuyerID                        string     `json:"buyer_id"`
	SellerID                       string     `json:"seller_id"`
	Status                         Status     `json:"status"`
	MeetupLocation                 *string    `json:"meetup_location"`
	MeetupDate                     *time.Time `json:"meetup_date"`
	ProposedBy                     *string    `json:"proposed_by,omitempty"`
	BuyerConfirmed                 bool       `json:"buyer_confirmed"`
	SellerConfirmed                bool       `json:"seller_confirmed"`
	ProposedAt                     *time.Time `json:"proposed_at"`
	MeetupDayReachedAt             *time.Time `json:"meetup_day_reached_at"`
	UserCompletedConfirmation      bool       `json:"user_completed_confirmation"`
	OtherUserCompletedConfirmation bool       `json:"other_user_completed_confirmation"`
	UserAppealed                   bool       `json:"user_appealed"`
	OtherUserAppealed              bool       `json:"other_user_appealed"`
	UnsuccessfulAt                 *time.Time `json:"unsuccessful_at"`
	CompletedAt                    *time.Time `json:"completed_at"`
	DisputeReason                  *string    `json:"dispute_reason,omitempty"`
	ClosedAt                       *time.Time `json:"closed_at,omitempty"`
	Version                        int64      `json:"version"`
	CreatedAt                      time.Time  `json:"created_at"`
	UpdatedAt                      time.Time  `json:"updated_at"`
}

// NewTransaction creates a pending transaction between buyer and seller.
func NewTransaction(productID *string, buyerID, sellerID string, now time.Time) *Transaction {
	return &Transaction{
		TransactionID: uuid.New(),
		ProductID:     productID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsOpen reports whether the transaction has not reached a terminal state.
func (t *Transaction) IsOpen() bool {
	return t.ClosedAt == nil
}

// RoleOf returns the role actorID holds on the transaction.
func (t *Transaction) RoleOf(actorID string) (Role, bool) {
	switch {
	case actorID == "":
		return "", false
	case actorID == t.BuyerID:
		return RoleBuyer, true
	case actorID == t.SellerID:
		return RoleSeller, true
	}
	return "", false
}

// PartyID returns the id stored for role.
func (t *Transaction) PartyID(role Role) string {
	if role == RoleBuyer {
		return t.BuyerID
	}
	return t.SellerID
}

// Counterparty returns the other party's id.
func (t *Transaction) Counterparty(actorID string) string {
	if actorID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

// IsProposer reports whether actorID made the current proposal.
func (t *Transaction) IsProposer(actorID string) bool {
	return t.ProposedBy != nil && *t.ProposedBy == actorID
}

// Confirmed returns the confirmation flag for role.
func (t *Transaction) Confirmed(role Role) bool {
	if role == RoleBuyer {
		return t.BuyerConfirmed
	}
	return t.SellerConfirmed
}

// SetConfirmed sets the confirmation flag owned by role. actorID must be the
// party stored for that role.
func (t *Transaction) SetConfirmed(role Role, actorID string, value bool) error {
	if actorID == "" || t.PartyID(role) != actorID {
		return ErrUnauthorized
	}
	if role == RoleBuyer {
		t.BuyerConfirmed = value
	} else {
		t.SellerConfirmed = value
	}
	return nil
}

// BothConfirmed reports whether both parties confirmed attendance.
func (t *Transaction) BothConfirmed() bool {
	return t.BuyerConfirmed && t.SellerConfirmed
}

// Completed returns the completion flag for role.
func (t *Transaction) Completed(role Role) bool {
	if role == RoleBuyer {
		return t.UserCompletedConfirmation
	}
	return t.OtherUserCompletedConfirmation
}

func (t *Transaction) setCompleted(role Role) {
	if role == RoleBuyer {
		t.UserCompletedConfirmation = true
	} else {
		t.OtherUserCompletedConfirmation = true
	}
}

// BothCompleted reports whether both parties confirmed a successful exchange.
func (t *Transaction) BothCompleted() bool {
	return t.UserCompletedConfirmation && t.OtherUserCompletedConfirmation
}

// Appealed returns the appeal flag for role.
func (t *Transaction) Appealed(role Role) bool {
	if role == RoleBuyer {
		return t.UserAppealed
	}
	return t.OtherUserAppealed
}

func (t *Transaction) setAppealed(role Role) {
	if role == RoleBuyer {
		t.UserAppealed = true
	} else {
		t.OtherUserAppealed = true
	}
}

// BothAppealed reports whether both parties appealed an unsuccessful outcome.
func (t *Transaction) BothAppealed() bool {
	return t.UserAppealed && t.OtherUserAppealed
}

// ApplyMeetupDetails overwrites the proposed details and resets both
// confirmation flags.
func (t *Transaction) ApplyMeetupDetails(location string, date time.Time) {
	loc := location
	d := date.UTC()
	t.MeetupLocation = &loc
	t.MeetupDate = &d
	t.BuyerConfirmed = false
	t.SellerConfirmed = false
}

// clearProposal removes meetup details together with everything that only
// makes sense while a proposal is live.
func (t *Transaction) clearProposal() {
	t.MeetupLocation = nil
	t.MeetupDate = nil
	t.ProposedAt = nil
	t.ProposedBy = nil
	t.BuyerConfirmed = false
	t.SellerConfirmed = false
}

func (t *Transaction) clearOutcomeFlags() {
	t.UserCompletedConfirmation = false
	t.OtherUserCompletedConfirmation = false
	t.UserAppealed = false
	t.OtherUserAppealed = false
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.ProductID = cloneString(t.ProductID)
	c.MeetupLocation = cloneString(t.MeetupLocation)
	c.ProposedBy = cloneString(t.ProposedBy)
	c.DisputeReason = cloneString(t.DisputeReason)
	c.MeetupDate = cloneTime(t.MeetupDate)
	c.ProposedAt = cloneTime(t.ProposedAt)
	c.MeetupDayReachedAt = cloneTime(t.MeetupDayReachedAt)
	c.UnsuccessfulAt = cloneTime(t.UnsuccessfulAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	return &c
}

// StatusFields carries the auxiliary columns a raw status write may set.
type StatusFields struct {
	MeetupDayReachedAt *time.Time
	UnsuccessfulAt     *time.Time
	CompletedAt        *time.Time
	ClosedAt           *time.Time
	DisputeReason      *string
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// ApplyStatus writes status and every non-nil field without checking the
// transition. Leaving proposed and scheduled drops the live proposal.
func (t *Transaction) ApplyStatus(status Status, f StatusFields) {
	t.Status = status
	if status != StatusProposed && status != StatusScheduled {
		t.clearProposal()
	}
	if f.MeetupDayReachedAt != nil {
		t.MeetupDayReachedAt = cloneTime(f.MeetupDayReachedAt)
	}
	if f.UnsuccessfulAt != nil {
		t.UnsuccessfulAt = cloneTime(f.UnsuccessfulAt)
	}
	if f.CompletedAt != nil {
		t.CompletedAt = cloneTime(f.CompletedAt)
	}
	if f.ClosedAt != nil {
		t.ClosedAt = cloneTime(f.ClosedAt)
	}
	if f.DisputeReason != nil {
		t.DisputeReason = cloneString(f.DisputeReason)
	}
}
