package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []Notification
	err  error
}

func (r *recorder) Send(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestRateLimitedDropsBurst(t *testing.T) {
	rec := &recorder{}
	rl := NewRateLimited(rec, 2)

	ctx := context.Background()
	require.NoError(t, rl.Send(ctx, Notification{Title: "a"}))
	require.NoError(t, rl.Send(ctx, Notification{Title: "b"}))
	err := rl.Send(ctx, Notification{Title: "c"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, rec.sent, 2)
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recorder{}
	bad := &recorder{err: boom}

	err := Multi{ok, bad}.Send(context.Background(), Notification{Title: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.sent, 1)
	assert.Len(t, bad.sent, 1)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Delivered)
	assert.Equal(t, 1, partial.Failed)
	assert.True(t, Delivered(err))
}

func TestMultiAllFailedIsNotDelivered(t *testing.T) {
	boom := errors.New("boom")
	err := Multi{&recorder{err: boom}, &recorder{err: boom}}.Send(context.Background(), Notification{Title: "x"})
	assert.ErrorIs(t, err, boom)
	var partial *PartialError
	assert.False(t, errors.As(err, &partial))
	assert.False(t, Delivered(err))
	assert.True(t, Delivered(nil))
}

func TestRateLimitedKeepsPartialDelivery(t *testing.T) {
	boom := errors.New("notify-send missing")
	rl := NewRateLimited(Multi{&recorder{}, &recorder{err: boom}}, 5)
	err := rl.Send(context.Background(), Notification{Title: "x"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, Delivered(err))
	assert.False(t, Delivered(fmt.Errorf("%w: %q", ErrRateLimited, "x")))
}

func TestEscapeAppleScript(t *testing.T) {
	assert.Equal(t, `say \"hi\" \\ bye`, escapeAppleScript(`say "hi" \ bye`))
}
