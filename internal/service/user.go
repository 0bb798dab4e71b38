package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type UserService struct {
	store *store.Store
	log   *zap.Logger
}

func NewUserService(s *store.Store, log *zap.Logger) *UserService {
	return &UserService{store: s, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *UserService) CreateUser(ctx context.Context, email, password, name string, role models.Role, picture string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := u.store.GetUserByEmail(ctx, email); err == nil {
		return nil, errors.Wrap(ErrConflict, "email already registered")
	} else if !store.IsNotFound(err) {
		return nil, errors.Wrap(err, "lookup email")
	}
	if !role.Valid() {
		return nil, errors.Wrapf(ErrInvalid, "unknown role %q", role)
	}
	uid, err := utils.GenerateUserID()
	if err != nil {
		return nil, err
	}
	if password == "" {
		// generate random password if not provided (e.g. for OAuth users)
		password = utils.GenerateRandomString(24)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uid,
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         role,
	}
	ud := &models.UserDetails{
		UserID:            uid,
		ProfilePictureURL: picture,
	}
	// try create; if conflict on ID (rare), regenerate few times
	for i := 0; i < 5; i++ {
		err = u.store.CreateUser(ctx, user, ud)
		if err == nil {
			logActivity(ctx, u.store, u.log, user.ID, models.ActionSignup, "", nil)
			return user, nil
		}
		uid, err2 := utils.GenerateUserID()
		if err2 != nil {
			return nil, err2
		}
		user.ID = uid
		ud.UserID = uid
	}
	return nil, errors.Wrap(err, "could not create unique user id")
}

// VerifyCredentials checks email and password without looking at the blocked flag.
func (u *UserService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := u.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.Wrap(ErrUnauthorized, "invalid credentials")
		}
		return nil, errors.Wrap(err, "lookup user")
	}
	ok, err := utils.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !ok {
		return user, errors.Wrap(ErrUnauthorized, "invalid credentials")
	}
	return user, nil
}

// Authenticate is the login path: failures are recorded for the blocking sweep
// and blocked accounts are refused.
func (u *UserService) Authenticate(ctx context.Context, email, password, ip string) (*models.User, error) {
	user, err := u.VerifyCredentials(ctx, email, password)
	if err != nil {
		if user != nil {
			logActivity(ctx, u.store, u.log, user.ID, models.ActionLoginFailed, ip, nil)
		}
		return nil, err
	}
	if user.Blocked {
		return nil, errors.Wrap(ErrForbidden, "account blocked")
	}
	u.RecordLogin(ctx, user, ip)
	return user, nil
}

func (u *UserService) RecordLogin(ctx context.Context, user *models.User, ip string) {
	if err := u.store.TouchLastLogin(ctx, user.ID, utils.Now()); err != nil {
		u.log.Warn("touch last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	logActivity(ctx, u.store, u.log, user.ID, models.ActionLogin, ip, nil)
}

// FindOrCreateGoogleUser links a verified Google identity to an account by email.
func (u *UserService) FindOrCreateGoogleUser(ctx context.Context, email, name, picture string) (*models.User, error) {
	user, err := u.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return user, nil
	}
	if !store.IsNotFound(err) {
		return nil, errors.Wrap(err, "lookup user")
	}
	created, err := u.CreateUser(ctx, email, "", name, models.RoleStudent, picture)
	if err != nil {
		return nil, err
	}
	return u.store.GetUserByID(ctx, created.ID)
}

func (u *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := u.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(err, "load user")
	}
	ok, err := utils.ComparePasswordAndHash(current, user.PasswordHash)
	if err != nil || !ok {
		return errors.Wrap(ErrUnauthorized, "current password is wrong")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	if err := u.store.UpdateUserFields(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return storeErr(err, "update password")
	}
	// other sessions must sign in again
	return errors.Wrap(u.store.RevokeUserTokens(ctx, userID), "revoke sessions")
}

type ProfileUpdate struct {
	Name             *string
	Bio              *string
	Country          *string
	GithubUsername   *string
	LeetcodeUsername *string
	AdditionalInfo   *map[string]interface{}
}

func (u *UserService) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (*models.User, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, errors.Wrap(ErrInvalid, "name cannot be empty")
		}
		if err := u.store.UpdateUserFields(ctx, userID, map[string]interface{}{"name": name}); err != nil {
			return nil, storeErr(err, "update user")
		}
	}
	details := map[string]interface{}{}
	if p.Bio != nil {
		details["bio"] = *p.Bio
	}
	if p.Country != nil {
		details["country"] = *p.Country
	}
	if p.GithubUsername != nil {
		details["github_username"] = *p.GithubUsername
	}
	if p.LeetcodeUsername != nil {
		details["leetcode_username"] = *p.LeetcodeUsername
	}
	if p.AdditionalInfo != nil {
		details["additional_info"] = utils.DatatypesJSONFromMap(*p.AdditionalInfo)
	}
	if len(details) > 0 {
		if err := u.store.UpdateUserDetailsFields(ctx, userID, details); err != nil {
			return nil, storeErr(err, "update details")
		}
	}
	user, err := u.store.GetUserByID(ctx, userID)
	return user, storeErr(err, "load user")
}

// SetAvatar records the storage key and its resolved URL; empty values clear the avatar.
func (u *UserService) SetAvatar(ctx context.Context, userID, key, url string) error {
	return storeErr(u.store.UpdateUserDetailsFields(ctx, userID, map[string]interface{}{
		"profile_picture_key": key,
		"profile_picture_url": url,
	}), "update avatar")
}
