package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"requisition created", TypeRequisitionCreated, true},
		{"status changed", TypeStatusChanged, true},
		{"requisition rejected", TypeRequisitionRejected, true},
		{"project created", TypeProjectCreated, true},
		{"unknown type", Type("instance.created"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAll_AreValidAndDistinct(t *testing.T) {
	seen := make(map[Type]bool)
	for _, typ := range All() {
		if !typ.IsValid() {
			t.Errorf("All() contains invalid type %q", typ)
		}
		if seen[typ] {
			t.Errorf("All() contains %q twice", typ)
		}
		seen[typ] = true
	}
	if len(seen) != 7 {
		t.Errorf("All() returned %d types, want 7", len(seen))
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"new_status": "APPROVED",
	}

	evt := NewEvent(TypeStatusChanged, 123, "user-1", payload)

	if _, err := uuid.Parse(evt.ID); err != nil {
		t.Errorf("Event ID %q is not a uuid: %v", evt.ID, err)
	}
	if _, err := uuid.Parse(evt.CorrelationID); err != nil {
		t.Errorf("CorrelationID %q is not a uuid: %v", evt.CorrelationID, err)
	}
	if evt.ID == evt.CorrelationID {
		t.Error("ID and CorrelationID should differ")
	}
	if evt.RequisitionID != 123 || evt.ActorID != "user-1" {
		t.Errorf("unexpected event fields: %+v", evt)
	}
	if evt.GetPayloadString("new_status") != "APPROVED" {
		t.Errorf("Payload[new_status] = %v", evt.Payload["new_status"])
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeRequisitionCreated, 9, "u", nil, "chain-1")

	if evt.CorrelationID != "chain-1" {
		t.Errorf("CorrelationID = %v, want chain-1", evt.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRequisitionCreated, 1, "u", map[string]interface{}{
		"key1": "value1",
	})

	modified := original.WithPayload("key2", "value2")

	if _, exists := original.Payload["key2"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.GetPayloadString("key1") != "value1" || modified.GetPayloadString("key2") != "value2" {
		t.Errorf("Modified payload = %v", modified.Payload)
	}
	if modified.ID != original.ID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity")
	}
}

func TestEvent_GetPayloadInt(t *testing.T) {
	evt := NewEvent(TypeRequisitionCreated, 1, "u", map[string]interface{}{
		"int64":   int64(100),
		"int":     50,
		"float64": 75.5,
		"string":  "not a number",
	})

	tests := []struct {
		key  string
		want int64
	}{
		{"int64", 100},
		{"int", 50},
		{"float64", 75},
		{"string", 0},
		{"missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := evt.GetPayloadInt(tt.key); got != tt.want {
				t.Errorf("GetPayloadInt(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
