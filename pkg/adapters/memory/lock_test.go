package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/catchment/pkg/adapters/memory"
	"github.com/aretw0/catchment/pkg/ports"
	"github.com/aretw0/catchment/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DistributedLocker = (*memory.Locker)(nil)

func TestLocker_Contract(t *testing.T) {
	tests.RunLockerContract(t, memory.NewLocker())
}

func TestLocker_ReleasesEntries(t *testing.T) {
	l := memory.NewLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	// unlocking twice is harmless
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))
	assert.Equal(t, 0, l.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	hold, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	_, err = l.Lock(cancelled, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, hold(ctx))
	assert.Equal(t, 0, l.Len())
}
