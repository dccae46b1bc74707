package contacts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/models"
)

type fakeDirectory struct {
	calls    int
	contacts map[string]*models.Contact
	err      error
}

func (f *fakeDirectory) GetContactByURN(ctx context.Context, urn string) (*models.Contact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts[urn], nil
}

type memoryCache struct {
	items map[string]*models.Contact
}

func (m *memoryCache) GetContact(ctx context.Context, msisdn string) (*models.Contact, bool, error) {
	c, ok := m.items[msisdn]
	return c, ok, nil
}

func (m *memoryCache) SetContact(ctx context.Context, msisdn string, contact *models.Contact) error {
	m.items[msisdn] = contact
	return nil
}

func TestLookupUsesCache(t *testing.T) {
	dir := &fakeDirectory{contacts: map[string]*models.Contact{
		"tel:+27820001001": {UUID: "c-1"},
	}}
	svc := NewService(dir, &memoryCache{items: map[string]*models.Contact{}}, nil)

	for i := 0; i < 2; i++ {
		c, err := svc.Lookup(context.Background(), "+27820001001")
		require.NoError(t, err)
		assert.Equal(t, "c-1", c.UUID)
	}
	assert.Equal(t, 1, dir.calls)
}

func TestLookupWithoutCacheOrContact(t *testing.T) {
	dir := &fakeDirectory{}
	svc := NewService(dir, nil, nil)

	c, err := svc.Lookup(context.Background(), "+27820001001")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLookupFailure(t *testing.T) {
	svc := NewService(&fakeDirectory{err: errors.New("timeout")}, nil, nil)

	_, err := svc.Lookup(context.Background(), "+27820001001")
	assert.ErrorIs(t, err, ErrContactLookupFailed)
}

func TestInGroups(t *testing.T) {
	c := &models.Contact{Groups: []models.ContactGroup{{Name: "opted-out"}, {Name: "other"}}}

	assert.True(t, InGroups(c, "opted-out"))
	assert.True(t, IsOptedOut(c))
	assert.False(t, IsRegistered(c))
	assert.False(t, InGroups(c))
	assert.False(t, InGroups(nil, GroupSMS, GroupWhatsApp))

	c.Groups = append(c.Groups, models.ContactGroup{Name: GroupWhatsApp})
	assert.True(t, IsRegistered(c))
}
