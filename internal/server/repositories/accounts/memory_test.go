package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	created, err := r.Create(ctx, aliceAccount())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := r.FindByUsernameOrEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got.FirstName = "Changed"
	fresh, _ := r.FindByID(ctx, 1)
	assert.Equal(t, "A", fresh.FirstName, "returned values must be copies")

	require.NoError(t, r.Update(ctx, got))
	fresh, _ = r.FindByID(ctx, 1)
	assert.Equal(t, "Changed", fresh.FirstName)

	ok, _ := r.ExistsByRole(ctx, models.RoleAdmin)
	assert.False(t, ok)
	ok, _ = r.ExistsByEmail(ctx, "a@x.com")
	assert.True(t, ok)

	require.NoError(t, r.Delete(ctx, 1))
	_, err = r.FindByID(ctx, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, r.Delete(ctx, 1), common.ErrorNotFound)
	assert.ErrorIs(t, r.Update(ctx, got), common.ErrorNotFound)
}

func TestMemoryRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_, err := r.Create(ctx, aliceAccount())
	require.NoError(t, err)

	sameName := aliceAccount()
	sameName.Email = "other@x.com"
	_, err = r.Create(ctx, sameName)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	sameEmail := aliceAccount()
	sameEmail.Username = "bob"
	_, err = r.Create(ctx, sameEmail)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	bob := aliceAccount()
	bob.Username, bob.Email = "bob", "b@x.com"
	bob, err = r.Create(ctx, bob)
	require.NoError(t, err)
	bob.Email = "a@x.com"
	assert.ErrorIs(t, r.Update(ctx, bob), common.ErrAlreadyExists)
}

func TestMemoryRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(ctx, aliceAccount())
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, common.ErrAlreadyExists):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(15), dup.Load())
}
