package workflow

// Trigger names a transition a caller may apply
type Trigger string

const (
	TriggerApprove        Trigger = "approve"
	TriggerReject         Trigger = "reject"
	TriggerSubmit         Trigger = "submit"
	TriggerBackToApproved Trigger = "backToApproved"
	TriggerBackToInWork   Trigger = "backToInWork"
	TriggerToInsurance    Trigger = "toInsurance"
	TriggerRefund         Trigger = "refund"
	TriggerSettle         Trigger = "settle"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
