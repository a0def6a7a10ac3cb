package directory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/svc/directory"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := directory.NewMemory()

	u := directory.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}
	p := directory.Photographer{ID: uuid.New(), Name: "Lens Co", StripeConnectAccountID: "acct_1"}
	d.PutUser(u)
	d.PutPhotographer(p)

	got, err := d.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	dest, err := d.PayoutDestination(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "acct_1", dest)

	_, err = d.User(ctx, uuid.New())
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
	_, err = d.PayoutDestination(ctx, uuid.New())
	assert.ErrorIs(t, err, directory.ErrPhotographerNotFound)
}
