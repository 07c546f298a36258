package reconcile

import "github.com/mmynk/splitpay/internal/models"

// VisibleBills returns the external accounts ownerID may see: those whose
// slug has a local ownership row naming ownerID. External accounts with no
// local row are never visible to anyone. Order of external is preserved.
func VisibleBills(ownerID string, ownership []models.Ownership, external []models.ExternalAccount) []models.ExternalAccount {
	if ownerID == "" {
		return nil
	}

	owned := make(map[string]struct{}, len(ownership))
	for _, o := range ownership {
		if o.OwnerID == ownerID && o.Slug != "" {
			owned[o.Slug] = struct{}{}
		}
	}

	visible := make([]models.ExternalAccount, 0, len(owned))
	for _, e := range external {
		if _, ok := owned[e.Slug]; ok {
			visible = append(visible, e)
		}
	}
	return visible
}
