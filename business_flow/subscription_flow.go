package businessflow

import (
	"context"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// SubscriptionFlow manages business plans and the features they unlock
type SubscriptionFlow interface {
	UpdateSubscription(ctx context.Context, businessID, actorID uint, req *dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, businessID, actorID uint) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, businessID, actorID uint) (*dto.SubscriptionResponse, error)
	GetTierFeatures(tier string) (models.TierFeatures, error)
}

// SubscriptionFlowImpl implements SubscriptionFlow
type SubscriptionFlowImpl struct {
	subscriptionRepo repository.BusinessSubscriptionRepository
	businessRepo     repository.BusinessProfileRepository
	access           accessChecker
	tx               repository.Transactor
	logger           *logrus.Logger
}

// NewSubscriptionFlow creates a new subscription flow instance
func NewSubscriptionFlow(
	subscriptionRepo repository.BusinessSubscriptionRepository,
	businessRepo repository.BusinessProfileRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	tx repository.Transactor,
	logger *logrus.Logger,
) SubscriptionFlow {
	return &SubscriptionFlowImpl{
		subscriptionRepo: subscriptionRepo,
		businessRepo:     businessRepo,
		access:           newAccessChecker(userRepo, permissionRepo),
		tx:               tx,
		logger:           logger,
	}
}

// UpdateSubscription upserts the plan. New rows start active now; paid tiers run one year.
func (sf *SubscriptionFlowImpl) UpdateSubscription(ctx context.Context, businessID, actorID uint, req *dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_VALIDATION_FAILED", "Subscription validation failed", err)
	}
	tier := models.SubscriptionTier(req.Tier)
	if !tier.Valid() {
		return nil, NewBusinessError("SUBSCRIPTION_VALIDATION_FAILED", "Subscription validation failed", ErrInvalidTier)
	}

	sub, err := runInTx(ctx, sf.tx, func(ctx context.Context) (*models.BusinessSubscription, error) {
		if err := sf.requireManager(ctx, businessID, actorID); err != nil {
			return nil, err
		}

		sub, err := sf.subscriptionRepo.ByBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}

		now := utils.UTCNow()
		if sub == nil {
			sub = &models.BusinessSubscription{
				BusinessID:   businessID,
				Tier:         tier,
				Status:       models.SubscriptionStatusActive,
				BillingCycle: "yearly",
				StartDate:    now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			applySubscriptionRequest(sub, tier, req)
			if err := sf.subscriptionRepo.Save(ctx, sub); err != nil {
				return nil, err
			}
			return sub, nil
		}

		if sub.Status != models.SubscriptionStatusActive {
			sub.Status = models.SubscriptionStatusActive
			sub.StartDate = now
		}
		if sub.Tier != tier {
			sub.Tier = tier
			sub.StartDate = now
		}
		applySubscriptionRequest(sub, tier, req)
		sub.UpdatedAt = now
		if err := sf.subscriptionRepo.Update(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	})
	if err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_UPDATE_FAILED", "Failed to update subscription", err)
	}

	sf.logger.WithFields(logrus.Fields{
		"business_id": businessID,
		"tier":        sub.Tier,
	}).Info("subscription updated")

	return subscriptionResponse(sub), nil
}

func (sf *SubscriptionFlowImpl) GetSubscription(ctx context.Context, businessID, actorID uint) (*dto.SubscriptionResponse, error) {
	if err := sf.requireManager(ctx, businessID, actorID); err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_GET_FAILED", "Failed to load subscription", err)
	}
	sub, err := sf.subscriptionRepo.ByBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_GET_FAILED", "Failed to load subscription", err)
	}
	return subscriptionResponse(sub), nil
}

// CancelSubscription stops the plan. The business falls back to free features.
func (sf *SubscriptionFlowImpl) CancelSubscription(ctx context.Context, businessID, actorID uint) (*dto.SubscriptionResponse, error) {
	sub, err := runInTx(ctx, sf.tx, func(ctx context.Context) (*models.BusinessSubscription, error) {
		if err := sf.requireManager(ctx, businessID, actorID); err != nil {
			return nil, err
		}
		sub, err := sf.subscriptionRepo.ByBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, validationErrorf("business has no subscription")
		}
		if sub.Status == models.SubscriptionStatusCancelled {
			return sub, nil
		}
		now := utils.UTCNow()
		sub.Status = models.SubscriptionStatusCancelled
		sub.AutoRenew = false
		sub.EndDate = &now
		sub.UpdatedAt = now
		if err := sf.subscriptionRepo.Update(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	})
	if err != nil {
		return nil, NewBusinessError("SUBSCRIPTION_CANCEL_FAILED", "Failed to cancel subscription", err)
	}
	return subscriptionResponse(sub), nil
}

// GetTierFeatures returns the feature row of a tier
func (sf *SubscriptionFlowImpl) GetTierFeatures(tier string) (models.TierFeatures, error) {
	t := models.SubscriptionTier(tier)
	if !t.Valid() {
		return models.TierFeatures{}, NewBusinessError("SUBSCRIPTION_VALIDATION_FAILED", "Subscription validation failed", ErrInvalidTier)
	}
	return t.Features(), nil
}

func (sf *SubscriptionFlowImpl) requireManager(ctx context.Context, businessID, actorID uint) error {
	business, err := sf.businessRepo.ByID(ctx, businessID)
	if err != nil {
		return err
	}
	if business == nil {
		return ErrBusinessNotFound
	}
	return sf.access.requireBusinessManager(ctx, business, actorID)
}

func applySubscriptionRequest(sub *models.BusinessSubscription, tier models.SubscriptionTier, req *dto.UpdateSubscriptionRequest) {
	if req.BillingCycle != "" {
		sub.BillingCycle = req.BillingCycle
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}
	if tier.IsPaid() {
		sub.EndDate = utils.ToPtr(sub.StartDate.Add(utils.PaidSubscriptionTerm))
	} else {
		sub.EndDate = nil
	}
}

func subscriptionResponse(sub *models.BusinessSubscription) *dto.SubscriptionResponse {
	tier := sub.EffectiveTier(utils.UTCNow())
	return &dto.SubscriptionResponse{
		Subscription:  sub,
		EffectiveTier: string(tier),
		Features:      tier.Features(),
	}
}

// effectiveFeatures resolves the features in force for a business. No row means free.
func effectiveFeatures(ctx context.Context, repo repository.BusinessSubscriptionRepository, businessID uint) (models.TierFeatures, error) {
	sub, err := repo.ByBusiness(ctx, businessID)
	if err != nil {
		return models.TierFeatures{}, err
	}
	return sub.EffectiveTier(utils.UTCNow()).Features(), nil
}
