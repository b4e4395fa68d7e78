package crew

// Status is the externally visible roster status of a crew member.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusAssigned  Status = "Assigned"
	StatusDead      Status = "Dead"
)

// Category classifies a roster entry for tracking eligibility.
type Category string

const (
	CategoryCrew      Category = "Crew"
	CategoryTourist   Category = "Tourist"   // transient visitor, never tracked
	CategoryApplicant Category = "Applicant" // candidate pool, not yet hired
)

// Member is the roster's view of a crew member.
type Member struct {
	Name      string   `json:"name"`
	Trait     string   `json:"trait"` // e.g. Pilot, Engineer, Scientist
	Category  Category `json:"category"`
	Status    Status   `json:"status"`
	Placement string   `json:"placement,omitempty"` // vessel or seat the member is assigned to
}

// Trackable reports whether the member belongs in the aging ledger.
func (m Member) Trackable() bool {
	switch m.Category {
	case CategoryTourist, CategoryApplicant:
		return false
	}
	return true
}

// ParseStatus accepts the canonical status names.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusAvailable, StatusAssigned, StatusDead:
		return Status(s), true
	}
	return "", false
}

// ParseCategory accepts the canonical category names; empty means crew.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case "":
		return CategoryCrew, true
	case CategoryCrew, CategoryTourist, CategoryApplicant:
		return Category(s), true
	}
	return "", false
}
