package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		from   Step
		ev     WizardEvent
		want   Step
		wantOK bool
	}{
		{StepCart, EventCheckout, StepDeliveryDetails, true},
		{StepDeliveryDetails, EventContinue, StepReview, true},
		{StepReview, EventEdit, StepDeliveryDetails, true},
		{StepReview, EventContinue, StepPayment, true},
		{StepPayment, EventPlaceOrder, StepTracking, true},
		{StepClosed, EventOpen, StepCart, true},

		{StepCart, EventContinue, "", false},
		{StepDeliveryDetails, EventEdit, "", false},
		{StepPayment, EventContinue, "", false},
		{StepTracking, EventPlaceOrder, "", false},
		{StepCart, EventOpen, "", false},
	}

	for _, tt := range tests {
		got, ok := NextStep(tt.from, tt.ev)
		assert.Equal(t, tt.wantOK, ok, "%s --%s-->", tt.from, tt.ev)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "%s --%s-->", tt.from, tt.ev)
		}
	}
}

func TestNextStep_CloseFromAnyOpenStep(t *testing.T) {
	for _, from := range []Step{StepCart, StepDeliveryDetails, StepReview, StepPayment, StepTracking} {
		got, ok := NextStep(from, EventClose)
		assert.True(t, ok, from)
		assert.Equal(t, StepClosed, got)
	}

	_, ok := NextStep(StepClosed, EventClose)
	assert.False(t, ok)
}
