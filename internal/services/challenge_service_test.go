package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otzivi/authcore/internal/models"
	"github.com/otzivi/authcore/internal/services"
)

func newChallengeService(t *testing.T) (*services.ChallengeService, *mockChallengeRepo, *mockEventSink) {
	t.Helper()
	repo := newMockChallengeRepo()
	sink := newMockEventSink()
	return services.NewChallengeService(repo, sink, testLogger()), repo, sink
}

func TestChallengeService_SetAndVerify(t *testing.T) {
	service, _, sink := newChallengeService(t)
	ctx := context.Background()

	err := service.SetChallenge(ctx, "acct-1", "First pet's name?", "Rex")
	require.NoError(t, err)

	assert.True(t, service.IsEnabled(ctx, "acct-1"))
	assert.Equal(t, 1, sink.countOfType(models.EventChallengeChanged))

	question, err := service.Question(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "First pet's name?", question)

	// Answers match case-insensitively with surrounding whitespace ignored.
	assert.True(t, service.Verify(ctx, "acct-1", "Rex"))
	assert.True(t, service.Verify(ctx, "acct-1", "  REX  "))
	assert.False(t, service.Verify(ctx, "acct-1", "Fido"))
}

func TestChallengeService_SetChallengeValidation(t *testing.T) {
	service, _, _ := newChallengeService(t)
	ctx := context.Background()

	assert.ErrorIs(t, service.SetChallenge(ctx, "", "q", "a"), models.ErrValidation)
	assert.ErrorIs(t, service.SetChallenge(ctx, "acct-1", "   ", "a"), models.ErrValidation)
	assert.ErrorIs(t, service.SetChallenge(ctx, "acct-1", "q", "   "), models.ErrValidation)
}

func TestChallengeService_SetChallengeOverwrites(t *testing.T) {
	service, _, _ := newChallengeService(t)
	ctx := context.Background()

	require.NoError(t, service.SetChallenge(ctx, "acct-1", "Old question?", "old"))
	require.NoError(t, service.SetChallenge(ctx, "acct-1", "New question?", "new"))

	question, err := service.Question(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "New question?", question)

	assert.False(t, service.Verify(ctx, "acct-1", "old"))
	assert.True(t, service.Verify(ctx, "acct-1", "new"))
}

func TestChallengeService_VerifyFailsClosed(t *testing.T) {
	service, repo, _ := newChallengeService(t)
	ctx := context.Background()

	// No challenge configured.
	assert.False(t, service.Verify(ctx, "acct-1", "anything"))

	require.NoError(t, service.SetChallenge(ctx, "acct-1", "q", "answer"))

	// Empty or missing account/answer.
	assert.False(t, service.Verify(ctx, "", "answer"))
	assert.False(t, service.Verify(ctx, "acct-1", "   "))

	// Store failure.
	repo.failWith = errors.New("connection refused")
	assert.False(t, service.Verify(ctx, "acct-1", "answer"))
}

func TestChallengeService_GatingToggle(t *testing.T) {
	service, _, sink := newChallengeService(t)
	ctx := context.Background()

	require.NoError(t, service.SetChallenge(ctx, "acct-1", "q", "answer"))
	require.True(t, service.IsEnabled(ctx, "acct-1"))

	require.NoError(t, service.SetGating(ctx, "acct-1", false))
	assert.False(t, service.IsEnabled(ctx, "acct-1"))
	assert.False(t, service.Verify(ctx, "acct-1", "answer"))
	assert.Equal(t, 1, sink.countOfType(models.EventTwoFactorDisabled))

	// The question survives the toggle.
	question, err := service.Question(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "q", question)

	require.NoError(t, service.SetGating(ctx, "acct-1", true))
	assert.True(t, service.IsEnabled(ctx, "acct-1"))
	assert.True(t, service.Verify(ctx, "acct-1", "answer"))
	assert.Equal(t, 1, sink.countOfType(models.EventTwoFactorEnabled))
}

func TestChallengeService_SetGatingUnknownAccount(t *testing.T) {
	service, _, sink := newChallengeService(t)

	err := service.SetGating(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, sink.snapshot())
}

func TestChallengeService_QuestionUnknownAccount(t *testing.T) {
	service, _, _ := newChallengeService(t)

	_, err := service.Question(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
