package entity

// Kind identifies one of the four report variants.
type Kind string

const (
	KindTrip           Kind = "travel"
	KindAdvance        Kind = "advance"
	KindExpenseReport  Kind = "expenseReport"
	KindHealthCareCost Kind = "healthCareCost"
)

// Kinds lists all report kinds in display order.
var Kinds = []Kind{KindTrip, KindAdvance, KindExpenseReport, KindHealthCareCost}

// IsValid reports whether k is a known report kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTrip, KindAdvance, KindExpenseReport, KindHealthCareCost:
		return true
	}
	return false
}

// Purpose of a stage, expense or travel day
type Purpose string

const (
	PurposeProfessional Purpose = "professional"
	PurposeMixed        Purpose = "mixed"
	PurposePrivate      Purpose = "private"
)

// TransportType constants for Stage.Transport
const (
	TransportOwnCar      = "ownCar"
	TransportAirplane    = "airplane"
	TransportShipOrFerry = "shipOrFerry"
	TransportOther       = "otherTransport"
)

// Distance refund types for own car stages
const (
	DistanceRefundCar        = "car"
	DistanceRefundMotorcycle = "motorcycle"
	DistanceRefundHalfCar    = "halfCar"
)

// RefundType of a travel day refund
type RefundType string

const (
	RefundCatering8  RefundType = "catering8"
	RefundCatering24 RefundType = "catering24"
	RefundOvernight  RefundType = "overnight"
)

// Reference types used for referential integrity checks
const (
	RefCountry = "country"
	RefProject = "project"
	RefAdvance = "advance"
)

// Side effect kinds and statuses
const (
	SideEffectNotify  = "notify"
	SideEffectArchive = "archive"

	SideEffectStatusPending = "PENDING"
	SideEffectStatusDone    = "DONE"
	SideEffectStatusDead    = "DEAD"
)
