package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

// Payload travels with a transition request
type Payload struct {
	Comment   string        `json:"comment,omitempty"`
	RefundSum *entity.Money `json:"refundSum,omitempty"`
}

type payloadKey struct{}

func withPayload(ctx context.Context, p Payload) context.Context {
	return context.WithValue(ctx, payloadKey{}, p)
}

func payloadFrom(ctx context.Context) Payload {
	p, _ := ctx.Value(payloadKey{}).(Payload)
	return p
}

// guard is a payload precondition of one transition
type guard struct {
	field   string
	message string
	check   domainwf.GuardFunc
}

type guardKey struct {
	kind    entity.Kind
	trigger domainwf.Trigger
}

var guards = map[guardKey]guard{
	{entity.KindHealthCareCost, domainwf.TriggerRefund}: {
		field:   "refundSum",
		message: "is required to refund a health care cost",
		check: func(ctx context.Context) bool {
			return payloadFrom(ctx).RefundSum != nil
		},
	},
}

// BuildStateMachine creates the state machine of a report kind positioned at state
func BuildStateMachine(kind entity.Kind, state domainwf.State) (domainwf.StateMachine, error) {
	rows := domainwf.Transitions(kind)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrUnknownKind, kind)
	}

	builder := domainwf.NewBuilder()
	for _, t := range rows {
		if g, ok := guards[guardKey{kind, t.Trigger}]; ok {
			builder.Configure(t.From).PermitIf(t.Trigger, t.To, t.Access, g.check)
			continue
		}
		builder.Configure(t.From).Permit(t.Trigger, t.To, t.Access)
	}
	return builder.Build(state)
}

// guardError explains a failed payload precondition
func guardError(kind entity.Kind, trigger domainwf.Trigger) error {
	if g, ok := guards[guardKey{kind, trigger}]; ok {
		return &entity.ValidationError{Field: g.field, Message: g.message}
	}
	return &entity.ValidationError{Field: "payload", Message: fmt.Sprintf("does not satisfy %s", trigger)}
}
