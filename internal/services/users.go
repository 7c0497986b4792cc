package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
)

// UserService owns accounts, login and public profiles.
type UserService struct {
	db     *gorm.DB
	tokens auth.TokenService
	log    *zap.Logger
}

func NewUserService(db *gorm.DB, tokens auth.TokenService, log *zap.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, log: log}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(username) < 3 || len(username) > 30 {
		return nil, invalid("username", "must be 3-30 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email || len(email) > 255 {
		return nil, invalid("email", "invalid email address")
	}
	if len(req.Password) < 8 || len(req.Password) > auth.MaxPasswordBytes {
		return nil, invalid("password", "must be 8-%d characters", auth.MaxPasswordBytes)
	}

	db := s.db.WithContext(ctx)
	var taken int64
	if err := db.Model(&models.User{}).Where("email = ? OR LOWER(username) = ?", email, strings.ToLower(username)).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, conflict("username or email already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  username,
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("username or email already registered")
		}
		return nil, err
	}
	s.log.Info("User registered", zap.String("user_id", user.ID), zap.String("username", user.Username))

	return s.issue(&user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrUnauthorized
	}
	return s.issue(&user)
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	token, exp, err := s.tokens.Sign(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: *user, Token: token, ExpiresAt: exp}, nil
}

// Me returns the caller's full account, email included.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > 50 {
			return nil, invalid("display_name", "must be 1-50 characters")
		}
		updates["display_name"] = name
	}
	if req.Bio != nil {
		if len(*req.Bio) > 1000 {
			return nil, invalid("bio", "must be at most 1000 characters")
		}
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Location != nil {
		updates["location"] = strings.TrimSpace(*req.Location)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// Profile is the public view of a user with their marketplace reputation.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	profile := &models.UserProfile{
		User:        user.Public(),
		Bio:         user.Bio,
		Location:    user.Location,
		MemberSince: user.CreatedAt,
	}

	var rating struct {
		Count int64
		Avg   *float64
	}
	err = db.Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("reviewee_id = ?", userID).
		Scan(&rating).Error
	if err != nil {
		return nil, err
	}
	profile.ReviewCount = rating.Count
	profile.AverageRating = rating.Avg

	if err := db.Model(&models.Listing{}).
		Where("seller_id = ? AND status = ?", userID, models.ListingActive).
		Count(&profile.ActiveListing).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Transaction{}).
		Where("(buyer_id = ? OR seller_id = ?) AND status = ?", userID, userID, models.TransactionCompleted).
		Count(&profile.CompletedDeal).Error; err != nil {
		return nil, err
	}
	return profile, nil
}
