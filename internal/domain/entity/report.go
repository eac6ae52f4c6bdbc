package entity

import (
	"encoding/json"
	"strings"
	"time"
)

// Place is a location on an itinerary.
type Place struct {
	Country string `json:"country"`
	Special string `json:"special,omitempty"`
	Place   string `json:"place"`
}

// Same reports whether two places denote the same location.
func (p Place) Same(o Place) bool {
	return p.Country == o.Country &&
		strings.EqualFold(p.Special, o.Special) &&
		strings.EqualFold(strings.TrimSpace(p.Place), strings.TrimSpace(o.Place))
}

// MidnightCountry declares the country a road leg is in at a given midnight.
type MidnightCountry struct {
	Date    time.Time `json:"date"`
	Country string    `json:"country"`
	Special string    `json:"special,omitempty"`
}

// Transport of a stage
type Transport struct {
	Type               string            `json:"type"`
	Distance           float64           `json:"distance,omitempty"`
	DistanceRefundType string            `json:"distanceRefundType,omitempty"`
	MidnightCountries  []MidnightCountry `json:"midnightCountries,omitempty"`
}

// DocumentRef points at a stored receipt blob.
type DocumentRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Stage is one directed leg of a trip.
type Stage struct {
	Departure     time.Time     `json:"departure"`
	Arrival       time.Time     `json:"arrival"`
	StartLocation Place         `json:"startLocation"`
	EndLocation   Place         `json:"endLocation"`
	Transport     Transport     `json:"transport"`
	Cost          Money         `json:"cost"`
	Purpose       Purpose       `json:"purpose"`
	Receipts      []DocumentRef `json:"receipts,omitempty"`
}

// Meals flags meals that were provided and must not be refunded.
type Meals struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Dinner    bool `json:"dinner"`
}

// Refund is one lump sum granted for a travel day.
type Refund struct {
	Type   RefundType `json:"type"`
	Refund Money      `json:"refund"`
}

// TravelDay is derived from the stages on every save.
type TravelDay struct {
	Date             time.Time `json:"date"`
	Country          string    `json:"country"`
	Special          string    `json:"special,omitempty"`
	Purpose          Purpose   `json:"purpose"`
	CateringNoRefund Meals     `json:"cateringNoRefund"`
	Refunds          []Refund  `json:"refunds,omitempty"`
}

// Expense is a single cost line.
type Expense struct {
	Description string        `json:"description"`
	Cost        Money         `json:"cost"`
	Date        time.Time     `json:"date"`
	Purpose     Purpose       `json:"purpose,omitempty"`
	Project     string        `json:"project,omitempty"`
	Receipts    []DocumentRef `json:"receipts,omitempty"`
}

// Comment left with a transition
type Comment struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	ToState   string    `json:"toState"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddUp is the per-project balance of a report.
type AddUp struct {
	Project         string   `json:"project"`
	Expenses        float64  `json:"expenses"`
	LumpSums        *float64 `json:"lumpSums,omitempty"`
	Advance         float64  `json:"advance"`
	Total           float64  `json:"total"`
	Balance         float64  `json:"balance"`
	AdvanceOverflow bool     `json:"advanceOverflow"`
}

// TripDetails are the Trip-specific fields.
type TripDetails struct {
	Destination           Place       `json:"destination"`
	Reason                string      `json:"reason"`
	StartDate             time.Time   `json:"startDate"`
	EndDate               time.Time   `json:"endDate"`
	ClaimOvernightLumpSum bool        `json:"claimOvernightLumpSum"`
	ClaimSpouseRefund     bool        `json:"claimSpouseRefund"`
	FellowTravelers       string      `json:"fellowTravelers,omitempty"`
	ProfessionalShare     *float64    `json:"professionalShare,omitempty"`
	LastPlaceOfWork       *Place      `json:"lastPlaceOfWork,omitempty"`
	Stages                []Stage     `json:"stages"`
	Days                  []TravelDay `json:"days"`
	Expenses              []Expense   `json:"expenses,omitempty"`
}

// AdvanceDetails are the Advance-specific fields.
type AdvanceDetails struct {
	Reason string `json:"reason"`
	Budget Money  `json:"budget"`
}

// ExpenseReportDetails are the ExpenseReport-specific fields.
type ExpenseReportDetails struct {
	Category string    `json:"category,omitempty"`
	Expenses []Expense `json:"expenses"`
}

// HealthCareCostDetails are the HealthCareCost-specific fields.
type HealthCareCostDetails struct {
	PatientName string    `json:"patientName"`
	Insurance   string    `json:"insurance"`
	Expenses    []Expense `json:"expenses"`
	RefundSum   *Money    `json:"refundSum,omitempty"`
}

// Report is the common document shape of all four kinds. Exactly one of the
// variant pointers matching Kind is set.
type Report struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	Owner    string    `json:"owner"`
	Editor   string    `json:"editor"`
	Project  string    `json:"project"`
	State    string    `json:"state"`
	Comments []Comment `json:"comments"`
	// History lists snapshot ids, oldest first.
	History  []string `json:"history"`
	Historic bool     `json:"historic"`
	// Parent is the live report id of a snapshot.
	Parent   string   `json:"parent,omitempty"`
	Booked   bool     `json:"booked"`
	Advances []string `json:"advances,omitempty"`
	AddUp    []AddUp  `json:"addUp"`
	Version  int64    `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Trip           *TripDetails           `json:"trip,omitempty"`
	Advance        *AdvanceDetails        `json:"advance,omitempty"`
	ExpenseReport  *ExpenseReportDetails  `json:"expenseReport,omitempty"`
	HealthCareCost *HealthCareCostDetails `json:"healthCareCost,omitempty"`
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	data, err := json.Marshal(r)
	if err != nil {
		panic("report is not serializable: " + err.Error())
	}
	var c Report
	if err := json.Unmarshal(data, &c); err != nil {
		panic("report is not deserializable: " + err.Error())
	}
	return &c
}

// Snapshot returns the immutable archival copy of r under a new id. The copy
// carries no history of its own.
func (r *Report) Snapshot(id string, at time.Time) *Report {
	s := r.Clone()
	s.ID = id
	s.Parent = r.ID
	s.History = nil
	s.Historic = true
	s.CreatedAt = at
	return s
}

// IsEditor reports whether actor may edit the report as its owner.
func (r *Report) IsEditor(actorID string) bool {
	return actorID != "" && (r.Owner == actorID || r.Editor == actorID)
}

// Expenses returns the expense lines of any variant.
func (r *Report) Expenses() []Expense {
	switch {
	case r.Trip != nil:
		return r.Trip.Expenses
	case r.ExpenseReport != nil:
		return r.ExpenseReport.Expenses
	case r.HealthCareCost != nil:
		return r.HealthCareCost.Expenses
	}
	return nil
}

// Receipts returns every receipt referenced by the report.
func (r *Report) Receipts() []DocumentRef {
	var refs []DocumentRef
	if r.Trip != nil {
		for _, s := range r.Trip.Stages {
			refs = append(refs, s.Receipts...)
		}
	}
	for _, e := range r.Expenses() {
		refs = append(refs, e.Receipts...)
	}
	return refs
}

// Reference is an outgoing link from a report to another entity.
type Reference struct {
	Type string
	ID   string
}

// References lists the countries, projects and advances the report points at.
func (r *Report) References() []Reference {
	seen := make(map[Reference]bool)
	var refs []Reference
	add := func(typ, id string) {
		if id == "" {
			return
		}
		ref := Reference{Type: typ, ID: id}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	add(RefProject, r.Project)
	for _, e := range r.Expenses() {
		add(RefProject, e.Project)
	}
	for _, a := range r.Advances {
		add(RefAdvance, a)
	}
	if r.Trip != nil {
		add(RefCountry, r.Trip.Destination.Country)
		for _, s := range r.Trip.Stages {
			add(RefCountry, s.StartLocation.Country)
			add(RefCountry, s.EndLocation.Country)
		}
		if r.Trip.LastPlaceOfWork != nil {
			add(RefCountry, r.Trip.LastPlaceOfWork.Country)
		}
	}
	return refs
}

// SideEffect is an outbox entry delivered after a committed transition.
type SideEffect struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Effect         string    `json:"effect"`
	ReportID       string    `json:"reportId"`
	SnapshotID     string    `json:"snapshotId"`
	Payload        string    `json:"payload"`
	Status         string    `json:"status"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"lastError,omitempty"`
	NextAttemptAt  time.Time `json:"nextAttemptAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
