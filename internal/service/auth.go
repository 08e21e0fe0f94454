package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/model"
	"github.com/sakif/repohub/internal/repository"
)

// AuthService is the User/Session Resolver.
//
//	AuthHandler (HTTP) → AuthService → UserStore (DB)
//	                   ↘ TokenService (JWT), TokenSealer (GitHub token at rest)
//
// It is also the auth.IdentityResolver used by the RequireAuth middleware.
type AuthService struct {
	users  repository.UserStore
	tokens *auth.TokenService
	sealer *auth.TokenSealer
	logger *slog.Logger
}

var _ auth.IdentityResolver = (*AuthService)(nil)

func NewAuthService(
	users repository.UserStore,
	tokens *auth.TokenService,
	sealer *auth.TokenSealer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		sealer: sealer,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback after the code exchange.
//
//  1. Seal the GitHub access token
//  2. Upsert the user by username (GitHub login): created on first login, refreshed after
//  3. Issue a session JWT for the stored user id
//
// The upsert is ONE atomic statement, so concurrent first logins for the same
// username end up with one row, not a UNIQUE violation. No retries: a store failure
// fails the sign-in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*AuthResult, error) {
	if ghUser == nil || ghUser.Login == "" {
		return nil, apperror.Unauthenticated("GitHub did not return a username")
	}

	sealed, err := s.sealer.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: sealing access token: %w", err)
	}

	user := &model.User{
		Username:          ghUser.Login,
		SealedGitHubToken: sealed,
	}
	if err := s.users.UpsertByUsername(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %q: %w", ghUser.Login, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Bool("isAdmin", user.IsAdmin),
	)

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Resolve maps validated token claims to the caller's current identity.
//
// isAdmin comes from the database on EVERY request, never from the token, so
// promoting or demoting a user with cmd/admin takes effect on their next request.
//
// If the user row has disappeared (database reset, restored backup), it is re-created
// lazily by username with the same atomic upsert as sign-in. That is the only write
// this method can make.
func (s *AuthService) Resolve(ctx context.Context, claims *auth.Claims) (*model.Identity, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, apperror.Unauthenticated("missing session")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID())
	if err == nil {
		return model.IdentityOf(user), nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: resolving user %s: %w", claims.UserID(), err)
	}

	if claims.Username == "" {
		return nil, apperror.Unauthenticated("session refers to an unknown user")
	}

	user = &model.User{Username: claims.Username}
	if err := s.users.UpsertByUsername(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: re-creating user %q: %w", claims.Username, err)
	}

	s.logger.Warn("re-created missing user from session",
		slog.String("tokenUserID", claims.UserID()),
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return model.IdentityOf(user), nil
}
