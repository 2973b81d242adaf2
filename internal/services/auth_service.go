package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/models"
	"github.com/hostwarden/backend/internal/plugin"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAdminNotFound      = errors.New("admin not found")
)

const tokenTTL = 24 * time.Hour

// ThrottledError is returned when a plugin refused the attempt before the
// credentials were checked. Message is safe to show to the user.
type ThrottledError struct {
	Message string
}

func (e *ThrottledError) Error() string { return e.Message }

// AuthDispatcher delivers the before-authentication event to plugins.
type AuthDispatcher interface {
	DispatchBeforeAuthentication(ev *plugin.AuthEvent) error
}

// Claims are carried by every issued token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db      *gorm.DB
	config  config.Config
	plugins AuthDispatcher
	now     func() time.Time
}

// NewAuthService returns the login service. plugins may be nil.
func NewAuthService(db *gorm.DB, cfg config.Config, plugins AuthDispatcher) *AuthService {
	return &AuthService{db: db, config: cfg, plugins: plugins, now: time.Now}
}

// Login runs the before-authentication plugins, checks the password of
// username and returns a signed token.
func (s *AuthService) Login(ipAddr, username, password string) (string, error) {
	if s.plugins != nil {
		ev := &plugin.AuthEvent{IPAddr: ipAddr, Username: username, Form: "login"}
		if err := s.plugins.DispatchBeforeAuthentication(ev); err != nil {
			return "", fmt.Errorf("before authentication: %w", err)
		}
		if ev.Stopped() {
			return "", &ThrottledError{Message: ev.Message()}
		}
	}

	var admin models.Admin
	res := s.db.Where("admin_name = ?", username).Limit(1).Find(&admin)
	if res.Error != nil {
		return "", fmt.Errorf("load admin %s: %w", username, res.Error)
	}
	if res.RowsAffected == 0 || !admin.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}
	return s.GenerateToken(admin)
}

// GenerateToken issues an HS256 token for admin.
func (s *AuthService) GenerateToken(admin models.Admin) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: admin.ID,
		Role:   admin.AdminType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.UUID,
			Issuer:    "hostwarden",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) GetAdminByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// ChangePassword replaces the password of id after checking the old one.
func (s *AuthService) ChangePassword(id uint, oldPassword, newPassword string) error {
	admin, err := s.GetAdminByID(id)
	if err != nil {
		return err
	}
	if !admin.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := admin.SetPassword(newPassword); err != nil {
		return err
	}
	return s.db.Model(admin).Update("admin_pass", admin.PasswordHash).Error
}
