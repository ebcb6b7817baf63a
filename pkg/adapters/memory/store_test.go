package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/catchment/pkg/domain"
	"github.com/aretw0/catchment/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunResultStoreContract(t, NewStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	d := &domain.Delineation{Kind: domain.KindBasin, Mask: &domain.Mask{}}
	require.NoError(t, s.Save(ctx, "k", d, time.Minute))
	_, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	now = now.Add(time.Minute)
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, s.Len())
}
