package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewAMQPPublisher("", "", zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), Event{Type: SessionCompleted, SessionID: uuid.New()}))
	assert.NoError(t, p.Close())
	assert.Equal(t, DefaultExchange, p.exchange)
}

func TestMemoryPublisherKeepsOrder(t *testing.T) {
	p := NewMemoryPublisher()
	id := uuid.New()

	require.NoError(t, p.Publish(context.Background(), Event{Type: SessionCompleted, SessionID: id}))
	require.NoError(t, p.Publish(context.Background(), Event{Type: ReportGenerated, SessionID: id}))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, SessionCompleted, events[0].Type)
	assert.Equal(t, ReportGenerated, events[1].Type)
}
