package attendance

import (
	"context"
	"time"

	"zapsters-attendance-backend/models"
)

// RequiredDomains are the program tracks every deployment starts with. IDs
// are stable slugs referenced by auto-provisioned users.
var RequiredDomains = []models.Domain{
	{ID: "web-dev", Name: "Web Development"},
	{ID: "cyber-security", Name: "Cybersecurity"},
	{ID: "power-bi", Name: "Power BI"},
	{ID: "game-dev", Name: "Game Development"},
	{ID: "aiml", Name: "AIML"},
	{ID: "ui-ux", Name: "UI/UX"},
}

// SeedDomains upserts the required domains, enforcing their canonical names
// without touching other fields of existing rows.
func SeedDomains(ctx context.Context, store Store) error {
	now := time.Now()
	for _, d := range RequiredDomains {
		d.IsActive = true
		d.CreatedAt = now
		d.UpdatedAt = now
		if err := store.UpsertDomain(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
