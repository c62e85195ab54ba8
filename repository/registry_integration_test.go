package repository_test

import (
	"context"
	"testing"

	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	testingutil "github.com/amirphl/business-registry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistryDB(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()
	if !testingutil.Available() {
		t.Skip("TEST_DB_HOST not set; skipping PostgreSQL integration test")
	}
	db, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})
	return db, testingutil.NewTestFixtures(db)
}

func TestRecomputeRating_ApprovedReviewsOnly(t *testing.T) {
	db, fx := setupRegistryDB(t)
	ctx := context.Background()

	owner, err := fx.CreateTestUser(models.UserTypeBusinessOwner)
	require.NoError(t, err)
	business, err := fx.CreateTestBusiness(owner.ID)
	require.NoError(t, err)

	for _, r := range []struct {
		rating float64
		status models.ReviewStatus
	}{
		{4, models.ReviewStatusApproved},
		{5, models.ReviewStatusApproved},
		{1, models.ReviewStatusRejected},
		{2, models.ReviewStatusPending},
	} {
		author, err := fx.CreateTestUser(models.UserTypeConsumer)
		require.NoError(t, err)
		_, err = fx.CreateTestReview(author.ID, business.ID, r.rating, r.status)
		require.NoError(t, err)
	}

	businesses := repository.NewBusinessProfileRepository(db.DB)
	require.NoError(t, businesses.RecomputeRating(ctx, business.ID))
	// idempotent
	require.NoError(t, businesses.RecomputeRating(ctx, business.ID))

	stored, err := businesses.ByID(ctx, business.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, 4.5, stored.Rating, 0.001)
	assert.EqualValues(t, 2, stored.TotalReviews)
}

func TestRecomputeRating_NoApprovedReviews(t *testing.T) {
	db, fx := setupRegistryDB(t)
	ctx := context.Background()

	owner, err := fx.CreateTestUser(models.UserTypeBusinessOwner)
	require.NoError(t, err)
	business, err := fx.CreateTestBusiness(owner.ID)
	require.NoError(t, err)
	_, err = fx.CreateTestReview(owner.ID, business.ID, 3, models.ReviewStatusFlagged)
	require.NoError(t, err)

	businesses := repository.NewBusinessProfileRepository(db.DB)
	require.NoError(t, businesses.RecomputeRating(ctx, business.ID))

	stored, err := businesses.ByID(ctx, business.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Rating)
	assert.Zero(t, stored.TotalReviews)
}

func TestReviews_OnePerUserAndBusiness(t *testing.T) {
	db, fx := setupRegistryDB(t)
	ctx := context.Background()

	owner, err := fx.CreateTestUser(models.UserTypeBusinessOwner)
	require.NoError(t, err)
	author, err := fx.CreateTestUser(models.UserTypeConsumer)
	require.NoError(t, err)
	business, err := fx.CreateTestBusiness(owner.ID)
	require.NoError(t, err)

	first, err := fx.CreateTestReview(author.ID, business.ID, 4, models.ReviewStatusRejected)
	require.NoError(t, err)

	_, err = fx.CreateTestReview(author.ID, business.ID, 5, models.ReviewStatusPending)
	require.Error(t, err, "uk_reviews_user_business must reject a second review")

	reviews := repository.NewReviewRepository(db.DB)
	found, err := reviews.ByUserAndBusiness(ctx, author.ID, business.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestGateway_TransactionRollsBack(t *testing.T) {
	db, fx := setupRegistryDB(t)
	ctx := context.Background()

	owner, err := fx.CreateTestUser(models.UserTypeBusinessOwner)
	require.NoError(t, err)
	business, err := fx.CreateTestBusiness(owner.ID)
	require.NoError(t, err)

	gateway := repository.NewGateway(db.DB)
	businesses := repository.NewBusinessProfileRepository(db.DB)

	err = gateway.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := businesses.UpdateAccreditationLevel(txCtx, business.ID, models.AccreditationLevelPremium); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	stored, err := businesses.ByID(ctx, business.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccreditationLevelNone, stored.AccreditationLevel)
}
