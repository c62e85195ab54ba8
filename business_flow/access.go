package businessflow

import (
	"context"

	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
)

// accessChecker answers the ownership and permission questions shared by the flows
type accessChecker struct {
	userRepo       repository.UserRepository
	permissionRepo repository.UserPermissionRepository
}

func newAccessChecker(userRepo repository.UserRepository, permissionRepo repository.UserPermissionRepository) accessChecker {
	return accessChecker{userRepo: userRepo, permissionRepo: permissionRepo}
}

// has is true for admins and explicit grants
func (a accessChecker) has(ctx context.Context, userID uint, permission string) (bool, error) {
	user, err := a.userRepo.ByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}
	return a.permissionRepo.Has(ctx, userID, permission)
}

func (a accessChecker) require(ctx context.Context, userID uint, permission string) error {
	ok, err := a.has(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// requireBusinessManager admits the owner and holders of businesses.manage
func (a accessChecker) requireBusinessManager(ctx context.Context, business *models.BusinessProfile, actorID uint) error {
	if business.OwnerID == actorID {
		return nil
	}
	return a.require(ctx, actorID, models.PermissionManageBusinesses)
}
