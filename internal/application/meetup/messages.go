package meetup

import (
	"fmt"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

const meetupDateLayout = "Mon, 02 Jan 2006 15:04 MST"

func noticeText(kind meetup.NoticeKind, tx *meetup.Transaction) string {
	switch kind {
	case meetup.NoticeProposed:
		return fmt.Sprintf("Meetup proposed at %s on %s. Please confirm.", location(tx), formatMeetupDate(tx))
	case meetup.NoticeConfirmed:
		return fmt.Sprintf("Meetup at %s on %s confirmed. Waiting for your confirmation.", location(tx), formatMeetupDate(tx))
	case meetup.NoticeScheduled:
		return fmt.Sprintf("Meetup scheduled at %s on %s.", location(tx), formatMeetupDate(tx))
	case meetup.NoticeCancelled:
		return "The meetup was cancelled. You can propose a new date."
	case meetup.NoticeWithdrawn:
		return "The other party withdrew from this transaction."
	case meetup.NoticeDisputed:
		return "This transaction was disputed and is waiting for a moderator."
	case meetup.NoticeProposalExpired:
		return "The meetup proposal expired without confirmation. This conversation is now marked done."
	case meetup.NoticeMeetupDay:
		return "Meetup day has arrived. Confirm within 7 days whether the exchange was completed."
	case meetup.NoticeCompletionMarked:
		return "The other party marked this transaction as completed. Please confirm."
	case meetup.NoticeCompleted:
		return "Transaction completed. Thank you!"
	case meetup.NoticeUnsuccessful:
		return "Transaction marked unsuccessful: completion was not confirmed by both parties. You can appeal within 7 days."
	case meetup.NoticeAppealed:
		return "The other party appealed the unsuccessful outcome. Appeal as well to reopen confirmation."
	case meetup.NoticeReopened:
		return "Both parties appealed. The completion window has been reopened for 7 days."
	case meetup.NoticeAppealWindowEnded:
		return "The appeal window has closed. This transaction remains unsuccessful."
	case meetup.NoticeResolved:
		return fmt.Sprintf("A moderator resolved the dispute. Transaction is now %s.", tx.Status)
	}
	return fmt.Sprintf("Transaction updated: %s.", tx.Status)
}

func location(tx *meetup.Transaction) string {
	if tx.MeetupLocation == nil {
		return "an unspecified location"
	}
	return *tx.MeetupLocation
}

func formatMeetupDate(tx *meetup.Transaction) string {
	if tx.MeetupDate == nil {
		return "an unspecified date"
	}
	return tx.MeetupDate.UTC().Format(meetupDateLayout)
}
