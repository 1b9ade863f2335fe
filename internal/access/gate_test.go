package access

import (
	"testing"

	"Mailcast/internal/models"
)

func TestGuard(t *testing.T) {
	owner := models.Viewer{UserID: 1}

	tests := []struct {
		name       string
		active     bool
		viewer     models.Viewer
		wantAllow  bool
		wantTarget string
		wantNotice string
	}{
		{"active newsletter", true, owner, true, "", ""},
		{"inactive newsletter", false, owner, false, "/newsletters/42", "Newsletter #42 is disabled"},
		{"inactive for staff", false, models.Viewer{UserID: 9, IsStaff: true}, false, "/newsletters/42", "Newsletter #42 is disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl := &models.Newsletter{ID: 42, OwnerID: 1, IsActive: tt.active}
			d := Guard(nl, tt.viewer)
			if d.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v", d.Allowed, tt.wantAllow)
			}
			if d.Redirect != tt.wantTarget || d.Notice != tt.wantNotice {
				t.Errorf("got redirect %q notice %q", d.Redirect, d.Notice)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	nl := &models.Newsletter{ID: 1, OwnerID: 5}

	tests := []struct {
		name   string
		viewer models.Viewer
		want   bool
	}{
		{"owner", models.Viewer{UserID: 5}, true},
		{"staff", models.Viewer{UserID: 6, IsStaff: true}, true},
		{"stranger", models.Viewer{UserID: 6}, false},
		{"anonymous", models.Viewer{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(nl, tt.viewer); got != tt.want {
				t.Errorf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEditExcludesStaff(t *testing.T) {
	nl := &models.Newsletter{ID: 1, OwnerID: 5}

	if !CanEdit(nl, models.Viewer{UserID: 5}) {
		t.Error("owner should be able to edit")
	}
	if CanEdit(nl, models.Viewer{UserID: 6, IsStaff: true}) {
		t.Error("staff who is not the owner should not edit")
	}
}

func TestCanViewLog(t *testing.T) {
	nl := &models.Newsletter{ID: 1, OwnerID: 5}

	tests := []struct {
		name   string
		nl     *models.Newsletter
		viewer models.Viewer
		want   bool
	}{
		{"owner", nl, models.Viewer{UserID: 5}, true},
		{"stranger", nl, models.Viewer{UserID: 6}, false},
		{"staff", nl, models.Viewer{UserID: 6, IsStaff: true}, true},
		{"orphaned row for user", nil, models.Viewer{UserID: 5}, false},
		{"orphaned row for staff", nil, models.Viewer{UserID: 6, IsStaff: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewLog(tt.nl, tt.viewer); got != tt.want {
				t.Errorf("CanViewLog = %v, want %v", got, tt.want)
			}
		})
	}
}
