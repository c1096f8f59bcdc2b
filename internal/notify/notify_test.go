package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nhle/mailhub/internal/model"
)

func TestFromMessage(t *testing.T) {
	now := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	msg := model.Message{
		ID:        "m1",
		AccountID: "a1",
		Subject:   "Your login code",
		From:      model.EmailAddress{Name: "Acme", Address: "no-reply@acme.io"},
		Classification: &model.Classification{
			Category:         model.CategoryOneTimeCode,
			VerificationCode: "123456",
			ShouldNotify:     true,
		},
	}

	n := FromMessage(msg, now)
	assert.Equal(t, model.Notification{
		MessageID:        "m1",
		AccountID:        "a1",
		Subject:          "Your login code",
		From:             "no-reply@acme.io",
		Category:         model.CategoryOneTimeCode,
		VerificationCode: "123456",
		CreatedAt:        now,
	}, n)

	msg.Classification = nil
	assert.Equal(t, model.CategoryRoutine, FromMessage(msg, now).Category)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLogNotifier(zap.New(core))

	require.NoError(t, l.Notify(context.Background(), model.Notification{
		Subject: "Hello", From: "a@example.com", VerificationCode: "4242",
	}))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Hello", fields["subject"])
	assert.Equal(t, "a@example.com", fields["from"])
	assert.Equal(t, "4242", fields["code"])
}

func TestMulti_JoinsErrors(t *testing.T) {
	var calls int
	ok := Func(func(context.Context, model.Notification) error { calls++; return nil })
	boom := errors.New("boom")
	bad := Func(func(context.Context, model.Notification) error { calls++; return boom })

	err := Multi{ok, bad, ok}.Notify(context.Background(), model.Notification{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), model.Notification{}))
}

func TestBus_Broadcast(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe(1)
	ch2, cancel2 := b.Subscribe(1)
	defer cancel2()

	n := model.Notification{MessageID: "m1"}
	require.NoError(t, b.Notify(context.Background(), n))

	assert.Equal(t, n, <-ch1)
	assert.Equal(t, n, <-ch2)

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open)

	// ch2 is full after this; the second emit is dropped, not blocked.
	require.NoError(t, b.Notify(context.Background(), model.Notification{MessageID: "m2"}))
	require.NoError(t, b.Notify(context.Background(), model.Notification{MessageID: "m3"}))
	assert.Equal(t, "m2", (<-ch2).MessageID)
}

func TestBus_Close(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe(0)
	b.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	late, _ := b.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
	require.NoError(t, b.Notify(context.Background(), model.Notification{}))
}
