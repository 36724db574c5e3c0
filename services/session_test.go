package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"assistant/config"
	"assistant/models"
)

func TestChatSession_HistoryBound(t *testing.T) {
	model := &echoChat{}
	session := NewChatSession(model, 10)

	for i := 0; i < 15; i++ {
		reply, err := session.Send(context.Background(), fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply to message %d", i), reply)
		assert.LessOrEqual(t, len(session.History()), 10)
	}

	for _, n := range model.seenLens {
		assert.LessOrEqual(t, n, 10)
	}

	history := session.History()
	require.Len(t, history, 10)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "message 10", history[0].Content)
	assert.Equal(t, "reply to message 14", history[9].Content)
}

func TestChatSession_OddBoundKeepsWholeExchanges(t *testing.T) {
	session := NewChatSession(&echoChat{}, 5)

	for i := 0; i < 6; i++ {
		_, err := session.Send(context.Background(), fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	history := session.History()
	assert.Len(t, history, 4)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "m4", history[0].Content)
}

func TestChatSession_FailedSendLeavesHistory(t *testing.T) {
	model := &MockChatModel{}
	model.On("SendChat", mock.Anything, mock.Anything, "ok").Return("fine", nil)
	model.On("SendChat", mock.Anything, mock.Anything, "broken").Return("", errors.New("network down"))
	model.On("SendChat", mock.Anything, mock.Anything, "blank").Return("   ", nil)

	session := NewChatSession(model, 10)

	_, err := session.Send(context.Background(), "ok")
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "broken")
	assert.EqualError(t, err, "network down")

	_, err = session.Send(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	assert.Len(t, session.History(), 2)
}

func TestChatSession_DefaultBound(t *testing.T) {
	assert.Equal(t, DefaultMaxHistoryLength, NewChatSession(&echoChat{}, 0).MaxLength())
}

// gatedChat blocks replies to "slow" until release is closed
type gatedChat struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedChat) SendChat(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	if message == "slow" {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "reply to " + message, nil
}

func TestChatSession_SlowSendDoesNotBlockOthers(t *testing.T) {
	model := &gatedChat{started: make(chan struct{}), release: make(chan struct{})}
	session := NewChatSession(model, 10)

	slowDone := make(chan error, 1)
	go func() {
		_, err := session.Send(context.Background(), "slow")
		slowDone <- err
	}()
	<-model.started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	reply, err := session.Send(ctx, "fast")
	require.NoError(t, err)
	assert.Equal(t, "reply to fast", reply)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(model.release)
	require.NoError(t, <-slowDone)

	history := session.History()
	require.Len(t, history, 4)
	assert.Equal(t, "fast", history[0].Content)
	assert.Equal(t, "reply to fast", history[1].Content)
	assert.Equal(t, "slow", history[2].Content)
	assert.Equal(t, "reply to slow", history[3].Content)
}

func TestChatSession_ConcurrentSendsKeepPairsTogether(t *testing.T) {
	session := NewChatSession(&echoChat{}, 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := session.Send(context.Background(), fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history := session.History()
	require.Len(t, history, 40)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, models.RoleUser, history[i].Role)
		assert.Equal(t, models.RoleModel, history[i+1].Role)
		assert.Equal(t, "reply to "+history[i].Content, history[i+1].Content)
	}
}

func TestSessionStore_GlobalScopeSharesOneSession(t *testing.T) {
	store := NewSessionStore(&echoChat{}, 10, config.SessionScopeGlobal, time.Minute)

	a := store.Session(WithClientKey(context.Background(), "a"))
	b := store.Session(WithClientKey(context.Background(), "b"))

	assert.Same(t, a, b)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_ClientScope(t *testing.T) {
	store := NewSessionStore(&echoChat{}, 10, config.SessionScopeClient, time.Minute)

	a1 := store.Session(WithClientKey(context.Background(), "a"))
	a2 := store.Session(WithClientKey(context.Background(), "a"))
	b := store.Session(WithClientKey(context.Background(), "b"))
	anonymous := store.Session(context.Background())

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.NotSame(t, a1, anonymous)
	assert.Equal(t, 2, store.Len())

	_, err := a1.Send(context.Background(), "only for a")
	require.NoError(t, err)
	assert.Empty(t, b.History())
}

func TestSessionStore_ClientSessionsExpire(t *testing.T) {
	store := NewSessionStore(&echoChat{}, 10, config.SessionScopeClient, 30*time.Millisecond)

	first := store.Session(WithClientKey(context.Background(), "a"))
	time.Sleep(60 * time.Millisecond)
	second := store.Session(WithClientKey(context.Background(), "a"))

	assert.NotSame(t, first, second)
}

func TestSessionStore_UnknownScopeFallsBackToGlobal(t *testing.T) {
	store := NewSessionStore(&echoChat{}, 10, "tenant", time.Minute)
	assert.Equal(t, config.SessionScopeGlobal, store.Scope())
}

func TestSessionStore_StatusReportsEffectiveBound(t *testing.T) {
	store := NewSessionStore(&echoChat{}, 0, config.SessionScopeGlobal, time.Minute)

	status := store.GetStatus()

	assert.Equal(t, DefaultMaxHistoryLength, status["max_history_length"])
	assert.Equal(t, config.SessionScopeGlobal, status["scope"])
}
