package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldflow/pkg/cache"
	"fieldflow/pkg/storage/memory"
)

// fakeRemote counts fetches and can be switched off to simulate an outage.
type fakeRemote struct {
	products  []Product
	customers []Customer
	down      bool
	fetches   int
}

func (f *fakeRemote) Products(ctx context.Context) ([]Product, error) {
	f.fetches++
	if f.down {
		return nil, errors.New("unreachable")
	}
	return f.products, nil
}

func (f *fakeRemote) Customers(ctx context.Context) ([]Customer, error) {
	f.fetches++
	if f.down {
		return nil, errors.New("unreachable")
	}
	return f.customers, nil
}

func TestServiceReadThrough(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{products: []Product{{ID: "p-1", Name: "Beans", Price: 10, Stock: 5}}}
	svc := NewService(remote, cache.New(memory.New()))

	first, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, remote.fetches)

	// Second read is served from the cache, even with the remote down.
	remote.down = true
	second, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, remote.fetches)
}

func TestServiceMissPropagatesRemoteError(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{down: true}
	svc := NewService(remote, cache.New(memory.New()))

	_, err := svc.Customers(ctx)
	assert.Error(t, err)
}

func TestServiceCachesCustomersSeparately(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{
		products:  []Product{{ID: "p-1"}},
		customers: []Customer{{ID: "c-1", Name: "Cafe"}},
	}
	svc := NewService(remote, cache.New(memory.New()))

	_, err := svc.Products(ctx)
	require.NoError(t, err)
	customers, err := svc.Customers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Cafe", customers[0].Name)
	assert.Equal(t, 2, remote.fetches)
}
