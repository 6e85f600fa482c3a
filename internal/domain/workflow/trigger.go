package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit            Trigger = "SUBMIT"
	TriggerApprovePurchasing Trigger = "APPROVE_PURCHASING"
	TriggerApproveManagement Trigger = "APPROVE_MANAGEMENT"
	TriggerReject            Trigger = "REJECT"
	TriggerExecute           Trigger = "EXECUTE"
	// TriggerCancel is accepted as input but no state has a Cancel edge yet
	TriggerCancel Trigger = "CANCEL"
)

var validTriggers = map[Trigger]bool{
	TriggerSubmit:            true,
	TriggerApprovePurchasing: true,
	TriggerApproveManagement: true,
	TriggerReject:            true,
	TriggerExecute:           true,
	TriggerCancel:            true,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger is a known event type
func (t Trigger) IsValid() bool {
	return validTriggers[t]
}
