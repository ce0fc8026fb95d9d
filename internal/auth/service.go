package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/safetyops/permit-management/internal/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserRepository is the credential-store surface the auth service depends on.
type UserRepository interface {
	Create(u *user.User) error
	GetByEmail(email string) (*user.User, error)
	GetByID(id int64) (*user.User, error)
	AdminExists() (bool, error)
}

// Service performs signup, login and token verification.
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
	}
}

// Signup registers a user and issues a session token. The single-ADMIN rule is
// pre-checked for a friendly error; the store's partial unique index is the
// authoritative guard, so a concurrent duplicate surfaces as a key conflict
// here rather than a second ADMIN row.
func (s *Service) Signup(dto SignupDTO) (*user.User, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	if dto.Role == user.RoleAdmin {
		exists, err := s.userRepo.AdminExists()
		if err != nil {
			return nil, "", fmt.Errorf("check admin existence: %w", err)
		}
		if exists {
			return nil, "", user.ErrDuplicateAdmin
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Role:         dto.Role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Two unique constraints can fire: email, and the partial
			// single-ADMIN index. Disambiguate by the requested role.
			if dto.Role == user.RoleAdmin {
				if exists, checkErr := s.userRepo.AdminExists(); checkErr == nil && exists {
					return nil, "", user.ErrDuplicateAdmin
				}
			}
			return nil, "", user.ErrDuplicateEmail
		}
		return nil, "", err
	}

	token, err := s.tokenGenerator.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return u, token, nil
}

// Login validates credentials and issues a session token.
func (s *Service) Login(dto LoginDTO) (*user.User, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	u, err := s.userRepo.GetByEmail(dto.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrUnknownUser
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, "", ErrWrongPassword
	}

	token, err := s.tokenGenerator.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return u, token, nil
}

// VerifyToken checks the signature and expiry of a session token.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.Verify(tokenString)
}

// GetUser resolves a verified identity against the credential store. A token
// whose subject was deleted after issuance must not be honored.
func (s *Service) GetUser(userID int64) (*user.User, error) {
	return s.userRepo.GetByID(userID)
}

// JWTTokenGenerator signs and verifies HS256 session tokens.
type JWTTokenGenerator struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:   []byte(secret),
		TokenTTL: ttl,
	}
}

// Issue creates a signed token binding identity, email and role.
func (j *JWTTokenGenerator) Issue(userID int64, email, role string) (string, error) {
	expiresAt := time.Now().Add(j.TokenTTL)

	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify validates a session token and returns its claims. Verification is
// pure: no I/O, deterministic given the same secret.
func (j *JWTTokenGenerator) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
