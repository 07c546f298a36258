package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitpay/internal/models"
)

// ParticipantStatus is one participant's row on the tracking view.
type ParticipantStatus struct {
	Participant models.Participant

	// Status is the normalized status of Latest, or pending when there is
	// no attempt yet.
	Status Status

	// Latest is the most recent attempt from this participant's phone.
	Latest *models.PaymentAttempt

	// Paid sums every paid attempt from this participant's phone.
	Paid decimal.Decimal

	Attempts int
}

// Summary is the result of reconciling one bill.
type Summary struct {
	Progress     Progress
	Participants []ParticipantStatus

	// Unmatched are attempts for the bill whose phone matches no participant.
	// Paid ones still count toward Progress.Collected.
	Unmatched []models.PaymentAttempt
}

// Reconcile runs the full pipeline for a bill. Attempts whose reference is
// set and names neither the bill's slug nor its ID are ignored.
func Reconcile(bill *models.Bill, participants []models.Participant, attempts []models.PaymentAttempt) Summary {
	own := make([]models.PaymentAttempt, 0, len(attempts))
	for _, a := range attempts {
		if a.BillReference == "" || a.BillReference == bill.Slug || a.BillReference == bill.ID {
			own = append(own, a)
		}
	}

	byPhone := groupByPhone(own)
	latestByID := MatchAttempts(participants, own)

	summary := Summary{
		Progress:     Aggregate(bill.Goal, own),
		Participants: make([]ParticipantStatus, 0, len(participants)),
	}

	claimed := make(map[string]bool)
	for _, p := range participants {
		key := NormalizePhone(p.PhoneNumber)
		mine := byPhone[key]
		claimed[key] = true

		ps := ParticipantStatus{
			Participant: p,
			Status:      StatusPending,
			Latest:      latestByID[p.ID],
			Paid:        decimal.Zero,
			Attempts:    len(mine),
		}
		if ps.Latest != nil {
			ps.Status = Normalize(ps.Latest.RawStatus)
		}
		for _, a := range mine {
			if Normalize(a.RawStatus) == StatusPaid {
				ps.Paid = ps.Paid.Add(a.Amount)
			}
		}
		summary.Participants = append(summary.Participants, ps)
	}

	for _, a := range own {
		if !claimed[NormalizePhone(a.PhoneNumber)] {
			summary.Unmatched = append(summary.Unmatched, a)
		}
	}
	return summary
}

// ApplyEvents overlays webhook events onto polled attempts. An event's
// status replaces the status of the attempt with the same ID unless the
// polled row was updated after the event arrived; an older event still
// wins when it is final and the polled row is not. Events for attempts the
// poll has not returned yet are appended as attempts.
// Events are expected newest first; only the newest per attempt is used.
func ApplyEvents(attempts []models.PaymentAttempt, events []models.PaymentEvent) []models.PaymentAttempt {
	if len(events) == 0 {
		return attempts
	}

	newest := make(map[string]models.PaymentEvent, len(events))
	order := make([]string, 0, len(events))
	for _, e := range events {
		if e.AttemptID == "" {
			continue
		}
		if _, seen := newest[e.AttemptID]; !seen {
			newest[e.AttemptID] = e
			order = append(order, e.AttemptID)
		}
	}

	out := make([]models.PaymentAttempt, 0, len(attempts)+len(newest))
	applied := make(map[string]bool, len(newest))
	for _, a := range attempts {
		if e, ok := newest[a.ID]; ok {
			if eventWins(a, e) {
				a.RawStatus = e.RawStatus
				if t := time.Unix(e.ReceivedAt, 0); t.After(a.UpdatedAt) {
					a.UpdatedAt = t
				}
			}
			applied[a.ID] = true
		}
		out = append(out, a)
	}

	for _, id := range order {
		if applied[id] {
			continue
		}
		e := newest[id]
		received := time.Unix(e.ReceivedAt, 0)
		out = append(out, models.PaymentAttempt{
			ID:            e.AttemptID,
			PhoneNumber:   e.PhoneNumber,
			Amount:        e.Amount,
			RawStatus:     e.RawStatus,
			BillReference: e.BillReference,
			CreatedAt:     received,
			UpdatedAt:     received,
		})
	}
	return out
}

func eventWins(a models.PaymentAttempt, e models.PaymentEvent) bool {
	if !time.Unix(e.ReceivedAt, 0).Before(a.UpdatedAt) {
		return true
	}
	return Normalize(e.RawStatus) != StatusPending && Normalize(a.RawStatus) == StatusPending
}
