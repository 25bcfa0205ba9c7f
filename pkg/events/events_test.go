package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/pcp/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	assert.Equal(t, ExpansionRecordedEvent, ExpansionRecorded{}.GetType())
	assert.Equal(t, WorkflowRunFinishedEvent, WorkflowRunFinished{}.GetType())
	assert.Equal(t, ScopeInvalidatedEvent, ScopeInvalidated{}.GetType())
}

func TestExpansionRecorded_JSONShape(t *testing.T) {
	event := ExpansionRecorded{
		BaseEvent: NewBase("evt-1", ExpansionRecordedEvent, "api-1"),
		Record:    models.UsageRecord{ID: "u1", PromptName: "greet", PromptVersion: "1.0.0", Success: true, LatencyMS: 12},
	}

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Equal(t, "evt-1", raw["id"])
	assert.Equal(t, "expansion.recorded", raw["type"])
	assert.Equal(t, "api-1", raw["source"])

	record, ok := raw["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "greet", record["prompt_name"])
}

func TestDecode(t *testing.T) {
	event, err := Decode(ScopeInvalidatedEvent, []byte(`{"id":"e1","type":"scope.invalidated","scope_id":"eng"}`))
	require.NoError(t, err)

	invalidated, ok := event.(*ScopeInvalidated)
	require.True(t, ok)
	assert.Equal(t, "eng", invalidated.ScopeID)

	_, err = Decode("policy.archived", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Decode(ExpansionRecordedEvent, []byte(`{`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}
