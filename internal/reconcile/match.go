package reconcile

import (
	"github.com/mmynk/splitpay/internal/models"
)

// MatchAttempts associates each participant with its most recent payment
// attempt, keyed by participant ID. Every participant is present in the
// result; participants without an attempt map to nil.
//
// Matching is by normalized phone number. When several attempts share a
// phone, the latest by UpdatedAt (then CreatedAt, then input order) wins.
func MatchAttempts(participants []models.Participant, attempts []models.PaymentAttempt) map[string]*models.PaymentAttempt {
	byPhone := groupByPhone(attempts)

	matched := make(map[string]*models.PaymentAttempt, len(participants))
	for _, p := range participants {
		matched[p.ID] = latest(byPhone[NormalizePhone(p.PhoneNumber)])
	}
	return matched
}

// groupByPhone indexes attempts by normalized phone, preserving input order.
func groupByPhone(attempts []models.PaymentAttempt) map[string][]*models.PaymentAttempt {
	byPhone := make(map[string][]*models.PaymentAttempt)
	for i := range attempts {
		a := &attempts[i]
		key := NormalizePhone(a.PhoneNumber)
		if key == "" {
			continue
		}
		byPhone[key] = append(byPhone[key], a)
	}
	return byPhone
}

func latest(attempts []*models.PaymentAttempt) *models.PaymentAttempt {
	var best *models.PaymentAttempt
	for _, a := range attempts {
		if best == nil || newer(a, best) {
			best = a
		}
	}
	return best
}

// newer reports whether a happened after b. Ties keep b (earlier in input).
func newer(a, b *models.PaymentAttempt) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
