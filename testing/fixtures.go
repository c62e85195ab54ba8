package testing

import (
	"fmt"
	"math/rand"

	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// TestPassword is the plain-text password of every fixture user
const TestPassword = "TestPass123!"

// CreateTestUser inserts an active user with a random email
func (tf *TestFixtures) CreateTestUser(userType models.UserType) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:             fmt.Sprintf("user.%09d@example.com", rand.Intn(1_000_000_000)),
		PasswordHash:      string(hashed),
		FirstName:         "Jane",
		LastName:          "Doe",
		UserType:          userType,
		Status:            models.UserStatusActive,
		VerificationLevel: models.VerificationLevelNone,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestBusiness inserts an active business owned by ownerID
func (tf *TestFixtures) CreateTestBusiness(ownerID uint) (*models.BusinessProfile, error) {
	business := &models.BusinessProfile{
		BusinessID:         fmt.Sprintf("BIZ-T%07d", rand.Intn(10_000_000)),
		OwnerID:            ownerID,
		LegalName:          "Acme Plumbing LLC",
		BusinessType:       "plumbing",
		Email:              "contact@acme.test",
		Phone:              "+15555550100",
		AddressLine:        "1 Main Street",
		City:               "Springfield",
		State:              "IL",
		Country:            "US",
		SocialLinks:        models.SocialLinks{},
		Status:             models.BusinessStatusActive,
		AccreditationLevel: models.AccreditationLevelNone,
	}
	if err := tf.DB.DB.Create(business).Error; err != nil {
		return nil, fmt.Errorf("failed to create test business: %w", err)
	}
	return business, nil
}

// CreateTestReview inserts a review in the given status
func (tf *TestFixtures) CreateTestReview(userID, businessID uint, rating float64, status models.ReviewStatus) (*models.Review, error) {
	now := utils.UTCNow()
	review := &models.Review{
		UserID:     userID,
		BusinessID: businessID,
		Title:      "Fixture review",
		Content:    "Written by the test fixtures.",
		Rating:     rating,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tf.DB.DB.Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create test review: %w", err)
	}
	return review, nil
}

// GrantPermission inserts an explicit permission grant
func (tf *TestFixtures) GrantPermission(userID uint, permission string, grantedBy *uint) error {
	grant := &models.UserPermission{
		UserID:     userID,
		Permission: permission,
		GrantedBy:  grantedBy,
		CreatedAt:  utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(grant).Error; err != nil {
		return fmt.Errorf("failed to grant %s: %w", permission, err)
	}
	return nil
}
