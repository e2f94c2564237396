package metadata

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockStoreResolver struct {
	DefaultStoreFn func(ctx context.Context) (Store, error)
}

func (m *mockStoreResolver) DefaultStore(ctx context.Context) (Store, error) {
	return m.DefaultStoreFn(ctx)
}

func TestCommerceEdition(t *testing.T) {
	assert.Equal(t, "Open Source", CommerceEdition("Community"))
	assert.Equal(t, "Adobe Commerce", CommerceEdition("Enterprise"))
	assert.Equal(t, "Adobe Commerce + B2B", CommerceEdition("B2B"))
	assert.Equal(t, "", CommerceEdition("Custom"))
	assert.Equal(t, "", CommerceEdition(""))
}

func TestCollector_Metadata(t *testing.T) {
	c := NewCollector(
		Platform{Edition: "Enterprise", Version: "2.4.6", ClientVersion: "1.1.0"},
		StaticStore{ID: "1", WebsiteID: "2", GroupID: "3"},
		slog.Default(),
	)

	assert.Equal(t, map[string]any{
		"commerceEdition":     "Adobe Commerce",
		"commerceVersion":     "2.4.6",
		"eventsClientVersion": "1.1.0",
		"storeId":             "1",
		"websiteId":           "2",
		"storeGroupId":        "3",
	}, c.Metadata(context.Background()))
}

func TestCollector_StoreErrorsBlankIdentifiers(t *testing.T) {
	for _, storeErr := range []error{ErrNoSuchStore, errors.New("connection reset")} {
		c := NewCollector(
			Platform{Edition: "Community", Version: "2.4.6"},
			&mockStoreResolver{DefaultStoreFn: func(context.Context) (Store, error) { return Store{ID: "9"}, storeErr }},
			slog.Default(),
		)

		md := c.Metadata(context.Background())
		assert.Equal(t, "Open Source", md[KeyCommerceEdition])
		assert.Equal(t, "", md[KeyStoreID])
		assert.Equal(t, "", md[KeyWebsiteID])
		assert.Equal(t, "", md[KeyStoreGroupID])
	}
}

func TestCollector_CachesUntilRefresh(t *testing.T) {
	calls := 0
	c := NewCollector(Platform{}, &mockStoreResolver{DefaultStoreFn: func(context.Context) (Store, error) {
		calls++
		return Store{ID: "1"}, nil
	}}, slog.Default())

	c.Metadata(context.Background())
	c.Metadata(context.Background())
	assert.Equal(t, 1, calls)

	c.Refresh()
	c.Metadata(context.Background())
	assert.Equal(t, 2, calls)
}

func TestCollector_ReturnsCopy(t *testing.T) {
	c := NewCollector(Platform{Version: "2.4.6"}, StaticStore{}, slog.Default())

	md := c.Metadata(context.Background())
	md[KeyCommerceVersion] = "changed"

	assert.Equal(t, "2.4.6", c.Metadata(context.Background())[KeyCommerceVersion])
}

func TestStaticStore(t *testing.T) {
	_, err := StaticStore{}.DefaultStore(context.Background())
	assert.ErrorIs(t, err, ErrNoSuchStore)

	s, err := StaticStore{ID: "1", WebsiteID: "1", GroupID: "1"}.DefaultStore(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "1", s.ID)
}
