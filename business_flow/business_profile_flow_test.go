package businessflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBusinessProfileFlow(s *memStore) BusinessProfileFlow {
	return NewBusinessProfileFlow(
		fakeBusinessRepo{s: s},
		nil,
		nil,
		nil,
		fakeSearchRepo{s: s},
		fakeUserRepo{s: s},
		fakePermissionRepo{s: s},
		nil,
		nil,
		s,
		utils.NopLogger(),
	)
}

// listing stores a business with the given directory attributes
func (s *memStore) listing(name, city string, status models.BusinessStatus, rating float64, reviews int64) uint {
	id := s.addBusiness(s.addUser(models.UserTypeBusinessOwner))
	b := s.businesses[id]
	b.LegalName = name
	b.City = city
	b.Status = status
	b.Rating = rating
	b.TotalReviews = reviews
	s.businesses[id] = b
	return id
}

func TestUpdateBusiness_Patch(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	stranger := s.addUser(models.UserTypeConsumer)
	staff := s.addUser(models.UserTypeConsumer)
	s.grant(staff, models.PermissionManageBusinesses)
	business := s.addBusiness(owner)
	flow := newTestBusinessProfileFlow(s)

	updated, err := flow.Update(ctx, business, owner, map[string]any{"legal_name": "  Acme Pipes  ", "city": "Springfield"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Pipes", updated.LegalName)
	assert.Equal(t, "Springfield", s.businesses[business].City)

	for _, field := range []string{"status", "rating", "owner_id", "business_id", "accreditation_level", "total_reviews"} {
		_, err := flow.Update(ctx, business, owner, map[string]any{field: "x"})
		assert.True(t, errors.Is(err, ErrImmutableField), field)
		assert.Equal(t, KindValidation, ErrorKindOf(err), field)
	}

	_, err = flow.Update(ctx, business, owner, map[string]any{"legal_name": "Fine", "favourite_colour": "blue"})
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.Equal(t, "Acme Pipes", s.businesses[business].LegalName, "a rejected patch writes nothing")

	_, err = flow.Update(ctx, business, owner, map[string]any{})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	_, err = flow.Update(ctx, business, owner, map[string]any{"legal_name": "   "})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	_, err = flow.Update(ctx, business, stranger, map[string]any{"legal_name": "Mine now"})
	assert.Equal(t, KindPermission, ErrorKindOf(err))

	_, err = flow.Update(ctx, business, staff, map[string]any{"legal_name": "Acme Plumbing & Heating"})
	require.NoError(t, err)

	_, err = flow.Update(ctx, 9999, owner, map[string]any{"legal_name": "Ghost"})
	assert.Equal(t, KindNotFound, ErrorKindOf(err))
}

func TestUpdateBusinessStatus(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	business := s.addBusiness(s.addUser(models.UserTypeBusinessOwner))
	flow := newTestBusinessProfileFlow(s)

	_, err := flow.UpdateStatus(ctx, business, "closed")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
	assert.Equal(t, KindValidation, ErrorKindOf(err))
	assert.Equal(t, models.BusinessStatusActive, s.businesses[business].Status)

	updated, err := flow.UpdateStatus(ctx, business, "suspended")
	require.NoError(t, err)
	assert.Equal(t, models.BusinessStatusSuspended, updated.Status)
	assert.Equal(t, models.BusinessStatusSuspended, s.businesses[business].Status)

	_, err = flow.UpdateStatus(ctx, 9999, "active")
	assert.Equal(t, KindNotFound, ErrorKindOf(err))
}

func TestUpdateBusinessAccreditation(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	business := s.addBusiness(s.addUser(models.UserTypeBusinessOwner))
	flow := newTestBusinessProfileFlow(s)

	_, err := flow.UpdateAccreditation(ctx, business, "gold")
	assert.True(t, errors.Is(err, ErrInvalidLevel))
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	updated, err := flow.UpdateAccreditation(ctx, business, "premium")
	require.NoError(t, err)
	assert.Equal(t, models.AccreditationLevelPremium, updated.AccreditationLevel)
	assert.Equal(t, models.AccreditationLevelPremium, s.businesses[business].AccreditationLevel)
}

func TestSearchBusinesses_CombinedFilters(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	best := s.listing("Springfield Plumbing Co", "Springfield", models.BusinessStatusActive, 4.8, 12)
	good := s.listing("Budget Plumbers", "springfield", models.BusinessStatusActive, 4.2, 30)
	s.listing("Low Rated Plumbing", "Springfield", models.BusinessStatusActive, 3.1, 5)
	s.listing("Suspended Plumbing", "Springfield", models.BusinessStatusSuspended, 4.9, 40)
	s.listing("Shelbyville Plumbing", "Shelbyville", models.BusinessStatusActive, 5, 3)
	s.listing("Springfield Bakery", "Springfield", models.BusinessStatusActive, 4.9, 50)
	flow := newTestBusinessProfileFlow(s)
	user := s.addUser(models.UserTypeConsumer)

	resp, err := flow.Search(ctx, &dto.SearchBusinessesRequest{
		Name:      "plumb",
		City:      "Springfield",
		Status:    "active",
		MinRating: ptrTo(4.0),
	}, &user)
	require.NoError(t, err)

	var ids []uint
	for _, b := range resp.Businesses {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []uint{best, good}, ids, "every filter applies, best rated first")
	assert.EqualValues(t, 2, resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.TotalPages)

	require.Len(t, s.searches, 1)
	assert.Equal(t, "plumb", s.searches[0].Query)
	assert.EqualValues(t, 2, s.searches[0].ResultCount)
	assert.Equal(t, "Springfield", s.searches[0].Filters["city"])

	_, err = flow.Search(ctx, &dto.SearchBusinessesRequest{Status: "closed"}, nil)
	assert.Equal(t, KindValidation, ErrorKindOf(err))
	_, err = flow.Search(ctx, &dto.SearchBusinessesRequest{AccreditationLevel: "gold"}, nil)
	assert.Equal(t, KindValidation, ErrorKindOf(err))
	_, err = flow.Search(ctx, &dto.SearchBusinessesRequest{MinRating: ptrTo(6.0)}, nil)
	assert.Equal(t, KindValidation, ErrorKindOf(err))
}

func TestSearchBusinesses_Pagination(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	for i := range 45 {
		s.listing(fmt.Sprintf("Plumber %02d", i), "Springfield", models.BusinessStatusActive, 4, int64(i))
	}
	flow := newTestBusinessProfileFlow(s)

	resp, err := flow.Search(ctx, &dto.SearchBusinessesRequest{}, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Businesses, utils.DefaultPerPage)
	assert.Equal(t, dto.PaginationInfo{Page: 1, PerPage: utils.DefaultPerPage, Total: 45, TotalPages: 3}, resp.Pagination)
	assert.EqualValues(t, 44, resp.Businesses[0].TotalReviews, "ties on rating break on review count")

	last, err := flow.Search(ctx, &dto.SearchBusinessesRequest{PaginationRequest: dto.PaginationRequest{Page: 3, PerPage: 20}}, nil)
	require.NoError(t, err)
	assert.Len(t, last.Businesses, 5)
	assert.Equal(t, 3, last.Pagination.Page)

	beyond, err := flow.Search(ctx, &dto.SearchBusinessesRequest{PaginationRequest: dto.PaginationRequest{Page: 9}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, beyond.Businesses)
	assert.Empty(t, beyond.Businesses)
	assert.Equal(t, 3, beyond.Pagination.TotalPages)
}
