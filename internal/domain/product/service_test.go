package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

type mockRepo struct {
	byID    map[string]*Product
	created *Product
	updated *Product
	deleted string
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	m.created = p
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	m.updated = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]Product, error) { return nil, nil }

func (m *mockRepo) ListByFarmer(_ context.Context, _ string) ([]Product, error) {
	return nil, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, _ []string) ([]Product, error) {
	return nil, nil
}

func (m *mockRepo) DeleteByFarmer(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

var (
	farmer = user.Identity{UserID: "farmer-1", Role: user.RoleFarmer}
	rival  = user.Identity{UserID: "farmer-2", Role: user.RoleFarmer}
)

func TestAuthorizeMutation(t *testing.T) {
	p := &Product{ID: "p1", FarmerID: "farmer-1"}

	require.NoError(t, AuthorizeMutation(p, "farmer-1"))
	require.ErrorIs(t, AuthorizeMutation(p, "farmer-2"), ErrNotOwner)
}

func TestCreate_SetsOwnerAndID(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), farmer, CreateRequest{
		Name:  "Heirloom Tomatoes",
		Price: decimal.RequireFromString("4.50"),
	})

	require.NoError(t, err)
	assert.Equal(t, "farmer-1", p.FarmerID)
	assert.NotEmpty(t, p.ID)
	require.NotNil(t, repo.created)
	assert.Equal(t, p.ID, repo.created.ID)
}

func TestCreate_RejectsNonPositivePrice(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.Create(context.Background(), farmer, CreateRequest{
		Name:  "Free Stuff",
		Price: decimal.Zero,
	})
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestUpdate_OwnershipEnforcedBeforeMutation(t *testing.T) {
	repo := &mockRepo{byID: map[string]*Product{
		"p1": {ID: "p1", FarmerID: "farmer-1", Name: "Apples", Price: decimal.NewFromInt(3)},
	}}
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), rival, "p1", CreateRequest{
		Name:  "Hijacked",
		Price: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Nil(t, repo.updated, "repository must not be touched on a failed ownership check")

	p, err := svc.Update(context.Background(), farmer, "p1", CreateRequest{
		Name:  "Honeycrisp Apples",
		Price: decimal.RequireFromString("3.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Honeycrisp Apples", p.Name)
	require.NotNil(t, repo.updated)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(&mockRepo{byID: map[string]*Product{}})

	_, err := svc.Update(context.Background(), farmer, "ghost", CreateRequest{
		Name:  "Nothing",
		Price: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	repo := &mockRepo{byID: map[string]*Product{
		"p1": {ID: "p1", FarmerID: "farmer-1"},
	}}
	svc := NewService(repo)

	require.ErrorIs(t, svc.Delete(context.Background(), rival, "p1"), ErrNotOwner)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), farmer, "p1"))
	assert.Equal(t, "p1", repo.deleted)
}
