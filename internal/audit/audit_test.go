package audit

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

func TestRecorder_RecordPublishes(t *testing.T) {
	var buf bytes.Buffer
	pub := new(MockPublisher)
	var published []byte
	pub.On("Publish", "match.accepted", mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) { published = args.Get(1).([]byte) }).
		Return(nil).Once()

	rec := NewRecorder(zerolog.New(&buf), pub)
	ev := rec.Record(7, "accepted", "match", 42, map[string]any{"project_id": 3})

	pub.AssertExpectations(t)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "match.accepted", ev.RoutingKey())

	decoded, err := Decode(published)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, uint(7), decoded.ActorID)
	assert.Equal(t, uint(42), decoded.ResourceID)
	assert.EqualValues(t, 3, decoded.Details["project_id"])

	assert.Contains(t, buf.String(), `"action":"accepted"`)
	assert.Contains(t, buf.String(), `"project_id":3`)
}

func TestRecorder_PublishFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	pub := new(MockPublisher)
	pub.On("Publish", "match.created", mock.Anything).Return(errors.New("broker down")).Once()

	rec := NewRecorder(zerolog.New(&buf), pub)
	rec.Record(1, "created", "match", 2, nil)

	pub.AssertExpectations(t)
	assert.Contains(t, buf.String(), "broker down")
}

func TestRecorder_WithoutPublisher(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(zerolog.New(&buf), nil)

	ev := rec.Record(1, "cancelled", "match", 9, nil)
	assert.Equal(t, "match.cancelled", ev.RoutingKey())
	assert.Contains(t, buf.String(), `"resource_id":9`)
}
