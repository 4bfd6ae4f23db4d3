package domain

type Step string

const (
	StepCart            Step = "cart"
	StepDeliveryDetails Step = "delivery_details"
	StepReview          Step = "review"
	StepPayment         Step = "payment"
	StepTracking        Step = "tracking"
	StepClosed          Step = "closed"
)

type WizardEvent string

const (
	EventCheckout   WizardEvent = "checkout"
	EventContinue   WizardEvent = "continue"
	EventEdit       WizardEvent = "edit"
	EventPlaceOrder WizardEvent = "place_order"
	EventClose      WizardEvent = "close"
	EventOpen       WizardEvent = "open"
)

// Close is legal from every open step and is handled in NextStep.
var wizardTransitions = map[Step]map[WizardEvent]Step{
	StepCart:            {EventCheckout: StepDeliveryDetails},
	StepDeliveryDetails: {EventContinue: StepReview},
	StepReview:          {EventEdit: StepDeliveryDetails, EventContinue: StepPayment},
	StepPayment:         {EventPlaceOrder: StepTracking},
	StepClosed:          {EventOpen: StepCart},
}

// NextStep reports the step reached from `from` on ev. Guards such as form
// validity are the caller's job; this only encodes the edges.
func NextStep(from Step, ev WizardEvent) (Step, bool) {
	if ev == EventClose {
		return StepClosed, from != StepClosed
	}
	next, ok := wizardTransitions[from][ev]
	return next, ok
}
