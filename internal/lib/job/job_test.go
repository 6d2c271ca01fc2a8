package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to, firstName string
	err           error
}

func (m *fakeMailer) SendWelcomeEmail(to, firstName string) error {
	m.to, m.firstName = to, firstName
	return m.err
}

func newTestService(m mailer) *JobService {
	logger := zerolog.Nop()
	return &JobService{mailer: m, logger: &logger}
}

func TestNewWelcomeEmailTask(t *testing.T) {
	task, err := NewWelcomeEmailTask("ada@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, TaskWelcome, task.Type())

	var p WelcomeEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, WelcomeEmailPayload{To: "ada@example.com", FirstName: "Ada"}, p)
}

func TestHandleWelcomeEmailTask(t *testing.T) {
	m := &fakeMailer{}
	task, err := NewWelcomeEmailTask("ada@example.com", "Ada")
	require.NoError(t, err)

	require.NoError(t, newTestService(m).mux().ProcessTask(context.Background(), task))
	assert.Equal(t, "ada@example.com", m.to)
	assert.Equal(t, "Ada", m.firstName)
}

func TestHandleWelcomeEmailTaskSendFailure(t *testing.T) {
	m := &fakeMailer{err: errors.New("resend unavailable")}
	task, err := NewWelcomeEmailTask("ada@example.com", "Ada")
	require.NoError(t, err)

	err = newTestService(m).handleWelcomeEmailTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWelcomeEmailTaskBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskWelcome, []byte("{"))

	err := newTestService(&fakeMailer{}).handleWelcomeEmailTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
