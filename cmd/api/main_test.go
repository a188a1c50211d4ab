package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockShutdowner struct {
	shutdown func(ctx context.Context) error
}

func (m *mockShutdowner) Shutdown(ctx context.Context) error { return m.shutdown(ctx) }

type mockSessionCloser struct {
	closeAll func(ctx context.Context)
}

func (m *mockSessionCloser) CloseAll(ctx context.Context) { m.closeAll(ctx) }

func TestShutdown_ClosesSessionsAfterServer(t *testing.T) {
	var order []string
	srv := &mockShutdowner{shutdown: func(context.Context) error {
		order = append(order, "server")
		return nil
	}}
	sessions := &mockSessionCloser{closeAll: func(context.Context) {
		order = append(order, "sessions")
	}}

	err := shutdown(context.Background(), srv, sessions)

	assert.NoError(t, err)
	assert.Equal(t, []string{"server", "sessions"}, order)
}

func TestShutdown_ServerErrorStillFlushesSessions(t *testing.T) {
	boom := errors.New("context deadline exceeded")
	closed := false
	srv := &mockShutdowner{shutdown: func(context.Context) error { return boom }}
	sessions := &mockSessionCloser{closeAll: func(context.Context) { closed = true }}

	err := shutdown(context.Background(), srv, sessions)

	assert.ErrorIs(t, err, boom)
	assert.True(t, closed, "pending editor text is saved even when the server fails to stop")
}
