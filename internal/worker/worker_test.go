package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationPayloadRow(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 4, 1, 8, 0, 0, 123, time.UTC)
	p := violationPayload{SessionID: id.String(), Type: "TAB_SWITCH", Total: 3, Risk: "WARNING", RecordedAt: at.UnixNano()}

	row, err := p.row()
	require.NoError(t, err)
	require.Len(t, row, len(violationColumns))
	assert.Equal(t, id, row[0])
	assert.Equal(t, "TAB_SWITCH", row[1])
	assert.True(t, at.Equal(row[4].(time.Time)), "nanosecond timestamps must survive the queue")
}

func TestViolationPayloadRowRejectsBadInput(t *testing.T) {
	_, err := (&violationPayload{SessionID: "nope", Type: "TAB_SWITCH"}).row()
	assert.Error(t, err)

	_, err = (&violationPayload{SessionID: uuid.NewString(), Type: "YAWNING"}).row()
	assert.Error(t, err)
}
