// Package access decides whether a viewer may act on a newsletter.
package access

import (
	"fmt"

	"Mailcast/internal/models"
)

type Decision struct {
	Allowed bool
	// Redirect and Notice are set when the request is denied.
	Redirect string
	Notice   string
}

// Guard refuses every edit or delete of an inactive newsletter and points
// the caller back to its detail page.
func Guard(nl *models.Newsletter, viewer models.Viewer) Decision {
	if !nl.IsActive {
		return Decision{
			Redirect: nl.DetailPath(),
			Notice:   fmt.Sprintf("%s is disabled", nl),
		}
	}
	return Decision{Allowed: true}
}

// CanView reports whether viewer owns nl or is staff.
func CanView(nl *models.Newsletter, viewer models.Viewer) bool {
	return viewer.IsStaff || (viewer.UserID != 0 && viewer.UserID == nl.OwnerID)
}

// CanEdit reports whether viewer owns nl.
func CanEdit(nl *models.Newsletter, viewer models.Viewer) bool {
	return viewer.UserID != 0 && viewer.UserID == nl.OwnerID
}

// CanViewLog reports whether viewer may read a log row of nl. nl is nil once
// the newsletter is gone; such rows are staff only.
func CanViewLog(nl *models.Newsletter, viewer models.Viewer) bool {
	if viewer.IsStaff {
		return true
	}
	return nl != nil && CanView(nl, viewer)
}
