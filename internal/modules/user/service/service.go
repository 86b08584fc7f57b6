package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/dto"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var errInvalidCredentials = apperror.Unauthenticated(apperror.CodeUnauthenticated, "invalid credentials")

type AuthService interface {
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	// UpsertFederated returns the account behind a verified identity,
	// creating it on first sign-in.
	UpsertFederated(ctx context.Context, id authctx.Identity, input dto.FederatedInput) (*dto.AuthResponse, error)
	GoogleLogin(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
}

type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type authService struct {
	repo         userRepo.Repository
	issuer       identity.Issuer
	googleConfig *oauth2.Config
	log          *zap.Logger
	now          func() time.Time
}

func NewAuthService(repo userRepo.Repository, issuer identity.Issuer, googleOpts GoogleOptions, log *zap.Logger) AuthService {
	var googleConfig *oauth2.Config
	if googleOpts.ClientID != "" {
		googleConfig = &oauth2.Config{
			ClientID:     googleOpts.ClientID,
			ClientSecret: googleOpts.ClientSecret,
			RedirectURL:  googleOpts.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}

	return &authService{
		repo:         repo,
		issuer:       issuer,
		googleConfig: googleConfig,
		log:          log,
		now:          time.Now,
	}
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperror.FromStore(err, "account")
	}

	if account.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if account.Status == entity.AccountBlocked {
		return nil, apperror.Forbidden(apperror.CodeAccountBlocked, "account is blocked")
	}

	if err := s.repo.TouchLogin(ctx, account.ID, s.now()); err != nil {
		s.log.Warn("touch last login", zap.String("account_id", account.ID.String()), zap.Error(err))
	}
	return s.buildAuthResponse(account, false)
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email is already registered")
	} else if !errors.Is(err, userRepo.ErrNotFound) {
		return nil, apperror.FromStore(err, "account")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	externalID := identity.LocalExternalID(id)

	account := &entity.Account{
		ID:           id,
		ExternalID:   &externalID,
		Email:        email,
		PasswordHash: string(hashed),
		Name:         strings.TrimSpace(input.Name),
		Phone:        input.Phone,
		Role:         input.Role,
		Status:       entity.InitialStatus(input.Role),
	}
	account.SetProfile(entity.EmptyProfile(input.Role))

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	s.log.Info("account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", account.Role),
		zap.String("status", account.Status))
	return s.buildAuthResponse(account, true)
}

func (s *authService) UpsertFederated(ctx context.Context, id authctx.Identity, input dto.FederatedInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(id.Email)
	if email == "" || id.ExternalID == "" {
		return nil, apperror.Unauthenticated(apperror.CodeInvalidToken, "identity carries no email")
	}

	account, err := s.repo.FindByExternalID(ctx, id.ExternalID)
	if errors.Is(err, userRepo.ErrNotFound) {
		account, err = s.repo.FindByEmail(ctx, email)
	}
	if err == nil {
		if account.Status == entity.AccountBlocked {
			return nil, apperror.Forbidden(apperror.CodeAccountBlocked, "account is blocked")
		}
		if err := s.repo.TouchLogin(ctx, account.ID, s.now()); err != nil {
			s.log.Warn("touch last login", zap.String("account_id", account.ID.String()), zap.Error(err))
		}
		return s.buildAuthResponse(account, false)
	}
	if !errors.Is(err, userRepo.ErrNotFound) {
		return nil, apperror.FromStore(err, "account")
	}

	role := input.Role
	if role == "" {
		role = entity.RoleStudent
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = id.Name
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	externalID := id.ExternalID
	account = &entity.Account{
		ExternalID: &externalID,
		Email:      email,
		Name:       name,
		Phone:      input.Phone,
		Role:       role,
		Status:     entity.InitialStatus(role),
	}
	if id.Picture != "" {
		picture := id.Picture
		account.PhotoURL = &picture
	}
	account.SetProfile(entity.EmptyProfile(role))

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	s.log.Info("federated account created",
		zap.String("account_id", account.ID.String()),
		zap.String("role", account.Role))
	return s.buildAuthResponse(account, true)
}

func (s *authService) GoogleLogin(state string) (string, error) {
	if s.googleConfig == nil {
		return "", apperror.Unavailable(errors.New("google sign-in is not configured"))
	}
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	if s.googleConfig == nil {
		return nil, apperror.Unavailable(errors.New("google sign-in is not configured"))
	}

	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrUnauthorized, apperror.CodeInvalidToken, "failed to exchange authorization code", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	resp, err := s.googleConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Errorf("failed to get user info: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Unavailable(fmt.Errorf("google userinfo returned %d", resp.StatusCode))
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to decode user info: %w", err))
	}
	if !user.VerifiedEmail {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "google account email is not verified")
	}

	id := authctx.Identity{
		ExternalID: identity.GoogleExternalID(user.ID),
		Email:      strings.ToLower(user.Email),
		Name:       user.Name,
		Picture:    user.Picture,
	}

	account, err := s.repo.FindByExternalID(ctx, id.ExternalID)
	if errors.Is(err, userRepo.ErrNotFound) {
		account, err = s.repo.FindByEmail(ctx, id.Email)
	}
	switch {
	case err == nil:
		if account.Status == entity.AccountBlocked {
			return nil, apperror.Forbidden(apperror.CodeAccountBlocked, "account is blocked")
		}
		if err := s.repo.TouchLogin(ctx, account.ID, s.now()); err != nil {
			s.log.Warn("touch last login", zap.String("account_id", account.ID.String()), zap.Error(err))
		}
		return s.buildAuthResponse(account, false)
	case errors.Is(err, userRepo.ErrNotFound):
		// New users pick a role through POST /users/google with this token.
		accessToken, expiresAt, err := s.issuer.Issue(id)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		return &dto.AuthResponse{
			AccessToken:          accessToken,
			TokenType:            "Bearer",
			ExpiresIn:            int64(expiresAt.Sub(s.now()).Seconds()),
			RegistrationRequired: true,
		}, nil
	default:
		return nil, apperror.FromStore(err, "account")
	}
}

func (s *authService) buildAuthResponse(account *entity.Account, created bool) (*dto.AuthResponse, error) {
	externalID := identity.LocalExternalID(account.ID)
	if account.ExternalID != nil {
		externalID = *account.ExternalID
	}
	picture := ""
	if account.PhotoURL != nil {
		picture = *account.PhotoURL
	}

	accessToken, expiresAt, err := s.issuer.Issue(authctx.Identity{
		ExternalID: externalID,
		Email:      account.Email,
		Name:       account.Name,
		Picture:    picture,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &dto.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
		Account:     account,
		Created:     created,
	}, nil
}
