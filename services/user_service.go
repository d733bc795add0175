package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pwest1/recipe-meal-planner/models"
)

// UserService materializes local user records for identity-provider
// subjects and serves profile reads/updates.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Profile is the user record enriched with counts of owned entities, in
// the shape the web client expects.
type Profile struct {
	models.User
	Count ProfileCounts `json:"_count"`
}

type ProfileCounts struct {
	Recipes       int64 `json:"recipes"`
	MealPlans     int64 `json:"mealPlans"`
	Inventory     int64 `json:"inventory"`
	ShoppingLists int64 `json:"shoppingLists"`
}

// ProfilePatch applies only the fields present in the request.
type ProfilePatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// GetOrCreateProfile looks up the user for the given subject and creates
// it on first access, deriving username/email from token claim hints with
// synthetic placeholders as fallback.
func (s *UserService) GetOrCreateProfile(ctx context.Context, subject, emailHint, nameHint string) (*Profile, error) {
	user, err := s.getOrCreate(ctx, subject, emailHint, nameHint)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, user)
}

// UpdateProfile patches username and/or email. A username change is
// rejected when another user already holds the name.
func (s *UserService) UpdateProfile(ctx context.Context, subject string, patch ProfilePatch) (*Profile, error) {
	user, err := s.getOrCreate(ctx, subject, "", "")
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, fmt.Errorf("username cannot be empty: %w", ErrInvalidInput)
		}
		if username != user.Username {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("username = ? AND id <> ?", username, subject).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, fmt.Errorf("username %q is taken: %w", username, ErrConflict)
			}
		}
		updates["username"] = username
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return nil, fmt.Errorf("email cannot be empty: %w", ErrInvalidInput)
		}
		updates["email"] = email
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("username is taken: %w", ErrConflict)
			}
			return nil, err
		}
	}

	return s.enrich(ctx, user)
}

func (s *UserService) getOrCreate(ctx context.Context, subject, emailHint, nameHint string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", subject).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:       subject,
		Username: usernameFor(subject, nameHint),
		Email:    emailFor(subject, emailHint),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Either the claim-derived username is taken or a concurrent
			// request provisioned the same subject. Retry with the
			// synthetic name, then re-read.
			user.Username = syntheticUsername(subject)
			if retryErr := s.db.WithContext(ctx).Create(&user).Error; retryErr == nil {
				return &user, nil
			}
			if readErr := s.db.WithContext(ctx).First(&user, "id = ?", subject).Error; readErr == nil {
				return &user, nil
			}
		}
		return nil, err
	}

	return &user, nil
}

func (s *UserService) enrich(ctx context.Context, user *models.User) (*Profile, error) {
	var recipes int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("user_id = ?", user.ID).Count(&recipes).Error; err != nil {
		return nil, err
	}

	// Meal plans, inventory and shopping lists are not part of this
	// service yet; the client still expects the counts.
	return &Profile{
		User:  *user,
		Count: ProfileCounts{Recipes: recipes},
	}, nil
}

func usernameFor(subject, nameHint string) string {
	if name := strings.TrimSpace(nameHint); name != "" {
		return name
	}
	return syntheticUsername(subject)
}

func syntheticUsername(subject string) string {
	tail := subject
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "user-" + tail
}

func emailFor(subject, emailHint string) string {
	if email := strings.TrimSpace(emailHint); email != "" {
		return email
	}
	return fmt.Sprintf("user-%s@placeholder", subject)
}
