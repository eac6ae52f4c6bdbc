package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeStateChanged.IsValid())
	assert.Equal(t, "report.state_changed", TypeStateChanged.String())
	assert.False(t, Type("instance.created").IsValid())
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeStateChanged, "r1", entity.KindTrip, map[string]interface{}{KeyToState: "approved"})
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, "r1", evt.ReportID)
	assert.Equal(t, "approved", evt.GetPayloadString(KeyToState))
	assert.Equal(t, "", evt.GetPayloadString("missing"))
	assert.False(t, evt.Timestamp.IsZero())
}

func TestEvent_WithPayload(t *testing.T) {
	evt := NewEvent(TypeReportBooked, "r1", entity.KindAdvance, map[string]interface{}{KeyActorID: "u1"})
	next := evt.WithPayload(KeySnapshotID, "s1")

	assert.Equal(t, "s1", next.GetPayloadString(KeySnapshotID))
	assert.Equal(t, "", evt.GetPayloadString(KeySnapshotID))
	assert.Equal(t, evt.ID, next.ID)
	assert.Equal(t, "u1", next.GetPayloadString(KeyActorID))
}
