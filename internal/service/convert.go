package service

import (
	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/reconcile"
	"github.com/mmynk/splitpay/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIParticipant(p models.Participant) api.Participant {
	return api.Participant{
		ID:           p.ID,
		Name:         p.Name,
		PhoneNumber:  p.PhoneNumber,
		TargetAmount: p.TargetAmount,
	}
}

func toAPIBill(b *models.Bill) *api.Bill {
	out := &api.Bill{
		ID:        b.ID,
		Slug:      b.Slug,
		Name:      b.Name,
		Goal:      b.Goal,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
	for _, p := range b.Participants {
		out.Participants = append(out.Participants, toAPIParticipant(p))
	}
	return out
}

func toAPIProgress(p reconcile.Progress) api.Progress {
	return api.Progress{
		Goal:       p.Goal,
		Collected:  p.Collected,
		Remaining:  p.Remaining,
		Percent:    p.Percent,
		IsComplete: p.IsComplete,
	}
}

func toAPIAttempt(a models.PaymentAttempt) api.Attempt {
	return api.Attempt{
		ID:          a.ID,
		PhoneNumber: a.PhoneNumber,
		Amount:      a.Amount,
		Status:      string(reconcile.Normalize(a.RawStatus)),
		RawStatus:   a.RawStatus,
		PayerName:   a.PayerName,
		CreatedAt:   a.CreatedAt.Unix(),
		UpdatedAt:   a.UpdatedAt.Unix(),
	}
}

func toAPISummary(s reconcile.Summary) *api.Summary {
	out := &api.Summary{
		Progress:     toAPIProgress(s.Progress),
		Participants: make([]api.ParticipantProgress, 0, len(s.Participants)),
	}
	for _, ps := range s.Participants {
		row := api.ParticipantProgress{
			Participant: toAPIParticipant(ps.Participant),
			Status:      string(ps.Status),
			Paid:        ps.Paid,
			Attempts:    ps.Attempts,
		}
		if ps.Latest != nil {
			latest := toAPIAttempt(*ps.Latest)
			row.Latest = &latest
		}
		out.Participants = append(out.Participants, row)
	}
	for _, a := range s.Unmatched {
		out.Unmatched = append(out.Unmatched, toAPIAttempt(a))
	}
	return out
}

func toAPIChannel(c *models.Channel) *api.Channel {
	return &api.Channel{
		ID:        c.ID,
		DisplayID: c.DisplayID,
		Name:      c.Name,
		IsDefault: c.IsDefault,
		CreatedAt: c.CreatedAt,
	}
}
