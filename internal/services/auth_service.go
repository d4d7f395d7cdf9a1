package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/auth"
	"healthtracker/internal/models"
	"healthtracker/internal/ratelimit"
	"healthtracker/internal/repositories"
	"healthtracker/internal/utils"
)

const (
	resetCodeDigits = 6
	// maxResetAttempts is how many codes may be checked against one reset.
	maxResetAttempts = 5
)

type AuthDeps struct {
	Store    repositories.Store
	Codec    *auth.Codec
	Hasher   auth.PasswordHasher
	Mailer   EmailService
	Throttle ratelimit.Throttle
	Admin    AdminNotifier
	Log      *slog.Logger

	// PublicURL is the externally visible base of this API; confirmation links
	// point at PublicURL + "/auth/confirmation/<token>".
	PublicURL    string
	ResetCodeTTL time.Duration
	Now          func() time.Time
}

// AuthService drives the credential lifecycle: registration, confirmation,
// login, refresh rotation, logout, credential update and password reset.
type AuthService struct {
	store    repositories.Store
	codec    *auth.Codec
	hasher   auth.PasswordHasher
	mailer   EmailService
	throttle ratelimit.Throttle
	admin    AdminNotifier
	log      *slog.Logger

	publicURL    string
	resetCodeTTL time.Duration
	now          func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	s := &AuthService{
		store:        d.Store,
		codec:        d.Codec,
		hasher:       d.Hasher,
		mailer:       d.Mailer,
		throttle:     d.Throttle,
		admin:        d.Admin,
		log:          d.Log,
		publicURL:    strings.TrimRight(d.PublicURL, "/"),
		resetCodeTTL: d.ResetCodeTTL,
		now:          d.Now,
	}
	if s.throttle == nil {
		s.throttle = ratelimit.Noop{}
	}
	if s.admin == nil {
		s.admin = NoopNotifier{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.resetCodeTTL <= 0 {
		s.resetCodeTTL = 15 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func normalizeEmail(email string) string { return strings.TrimSpace(email) }

// Register creates an unverified user and mails a confirmation link.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Email: email, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			s.log.Info("[auth][register] duplicate email", "email", email)
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	s.log.Info("[auth][register] user created", "user_id", user.ID)

	s.sendConfirmation(user)
	if err := s.admin.UserRegistered(ctx, user); err != nil {
		s.log.Warn("[auth][register] admin notification failed", "user_id", user.ID, "err", err)
	}
	return user, nil
}

// SendConfirmation re-sends the confirmation link to an unverified address.
func (s *AuthService) SendConfirmation(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyConfirmed
	}
	if err := s.allow(ctx, ratelimit.ScopeConfirmation, email); err != nil {
		return err
	}
	s.sendConfirmation(user)
	return nil
}

// Confirm marks the address in a confirmation token as verified.
func (s *AuthService) Confirm(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(auth.KindConfirmation, token)
	if err != nil {
		s.log.Info("[auth][confirm] rejected token", "err", err)
		return ErrInvalidToken
	}

	user, err := s.userByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyConfirmed
	}
	flipped, err := s.store.Users().MarkVerified(ctx, user.ID)
	if err != nil {
		return err
	}
	// lost the race to a concurrent confirmation
	if !flipped {
		return ErrAlreadyConfirmed
	}
	s.log.Info("[auth][confirm] email confirmed", "user_id", user.ID)
	s.clearThrottle(ctx, ratelimit.ScopeConfirmation, user.Email)
	return nil
}

// Login checks the password of a verified user and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = normalizeEmail(email)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Info("[auth][login] password mismatch", "user_id", user.ID)
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}

	if n, err := s.store.RefreshTokens().DeleteExpired(ctx, user.ID, s.now()); err != nil {
		s.log.Warn("[auth][login] prune expired sessions failed", "user_id", user.ID, "err", err)
	} else if n > 0 {
		s.log.Debug("[auth][login] pruned expired sessions", "user_id", user.ID, "count", n)
	}

	pair, err := s.issuePair(ctx, s.store, user.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("[auth][login] success", "user_id", user.ID)
	return pair, nil
}

// Refresh rotates a refresh token: the presented id is removed and a new one
// inserted in the same transaction. A replayed or revoked token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	userID, tokenID, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	var pair *models.TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.RefreshTokens().Delete(ctx, userID, tokenID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}
		var err error
		pair, err = s.issuePair(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			s.log.Info("[auth][refresh] unknown or revoked token", "user_id", userID)
		}
		return nil, err
	}
	s.log.Debug("[auth][refresh] rotated", "user_id", userID)
	return pair, nil
}

// Logout revokes one session of userID. Other sessions stay valid.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	owner, tokenID, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	if owner != userID {
		s.log.Warn("[auth][logout] token belongs to another user", "user_id", userID)
		return ErrInvalidRefreshToken
	}
	if err := s.store.RefreshTokens().Delete(ctx, userID, tokenID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	s.log.Info("[auth][logout] session closed", "user_id", userID)
	return nil
}

// UpdateCredentials changes email and/or password after re-checking the
// current password. A new email is unverified until its link is followed;
// a password change closes every session.
func (s *AuthService) UpdateCredentials(ctx context.Context, userID uuid.UUID, currentPassword, newEmail, newPassword string) (*models.User, error) {
	newEmail = normalizeEmail(newEmail)

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}

	changeEmail := newEmail != "" && newEmail != user.Email
	changePassword := newPassword != ""
	if !changeEmail && !changePassword {
		return nil, ErrNothingToUpdate
	}

	var hash string
	if changePassword {
		if hash, err = s.hasher.Hash(newPassword); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if changeEmail {
			if err := tx.Users().UpdateEmail(ctx, userID, newEmail); err != nil {
				return err
			}
		}
		if changePassword {
			if err := tx.Users().UpdatePassword(ctx, userID, hash); err != nil {
				return err
			}
			if _, err := tx.RefreshTokens().DeleteAllForUser(ctx, userID); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, ErrDuplicateEmail
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	s.log.Info("[auth][credentials] updated", "user_id", userID, "email", changeEmail, "password", changePassword)

	updated, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if changeEmail {
		s.sendConfirmation(updated)
	}
	return updated, nil
}

// RequestReset mails a one-time numeric code to a verified address.
func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.Verified {
		return ErrNotVerified
	}
	if err := s.allow(ctx, ratelimit.ScopeReset, email); err != nil {
		return err
	}

	code, err := utils.NewNumericCode(resetCodeDigits)
	if err != nil {
		return err
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if _, err := s.store.PasswordResets().Create(ctx, user.ID, codeHash, s.now().Add(s.resetCodeTTL)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetCode(user.Email, code, s.resetCodeTTL); err != nil {
		s.log.Error("[password-reset] failed to send email", "user_id", user.ID, "err", err)
	}
	s.log.Info("[password-reset] code issued", "user_id", user.ID)
	return nil
}

// ConfirmReset sets a new password when code matches the latest unused,
// unexpired reset of email, and closes every session of that user. Each reset
// takes at most maxResetAttempts code checks.
func (s *AuthService) ConfirmReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.allow(ctx, ratelimit.ScopeResetConfirm, email); err != nil {
		return err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return err
	}
	reset, err := s.store.PasswordResets().GetLatestUnused(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return err
	}
	if !s.now().Before(reset.ExpiresAt) {
		s.log.Info("[password-reset] code expired", "user_id", user.ID)
		return ErrInvalidVerificationCode
	}
	// the attempt is counted before the comparison so parallel guesses share one budget
	if _, err := s.store.PasswordResets().ConsumeAttempt(ctx, reset.ID, maxResetAttempts); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("[password-reset] attempts exhausted", "user_id", user.ID)
			return ErrInvalidVerificationCode
		}
		return err
	}
	if err := s.hasher.Compare(reset.CodeHash, strings.TrimSpace(code)); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Info("[password-reset] code mismatch", "user_id", user.ID)
			return ErrInvalidVerificationCode
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	var revoked int64
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		// a concurrent confirm with the same code already used it
		if err := tx.PasswordResets().MarkUsed(ctx, reset.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrInvalidVerificationCode
			}
			return err
		}
		if err := tx.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}
		var err error
		revoked, err = tx.RefreshTokens().DeleteAllForUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("[password-reset] password replaced", "user_id", user.ID, "sessions_revoked", revoked)
	s.clearThrottle(ctx, ratelimit.ScopeResetConfirm, email)
	return nil
}

// Sessions lists the caller's unexpired refresh tokens, oldest first.
func (s *AuthService) Sessions(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error) {
	list, err := s.store.RefreshTokens().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := make([]*models.RefreshToken, 0, len(list))
	for _, t := range list {
		if t.ExpiresAt.After(now) {
			live = append(live, t)
		}
	}
	return live, nil
}

// Authorize verifies an access token and returns the user id it was issued for.
func (s *AuthService) Authorize(accessToken string) (uuid.UUID, error) {
	claims, err := s.codec.Verify(auth.KindAccess, accessToken)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func (s *AuthService) issuePair(ctx context.Context, store repositories.Store, userID uuid.UUID) (*models.TokenPair, error) {
	access, _, err := s.codec.Issue(auth.KindAccess, userID.String())
	if err != nil {
		return nil, err
	}
	refresh, claims, err := s.codec.Issue(auth.KindRefresh, userID.String())
	if err != nil {
		return nil, err
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh token id: %w", err)
	}
	rt := &models.RefreshToken{UserID: userID, TokenID: tokenID, ExpiresAt: claims.ExpiresAt.Time}
	if err := store.RefreshTokens().Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) parseRefresh(token string) (userID, tokenID uuid.UUID, err error) {
	claims, err := s.codec.Verify(auth.KindRefresh, token)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidRefreshToken
	}
	if userID, err = uuid.Parse(claims.Subject); err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidRefreshToken
	}
	if tokenID, err = uuid.Parse(claims.ID); err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidRefreshToken
	}
	return userID, tokenID, nil
}

func (s *AuthService) sendConfirmation(user *models.User) {
	token, _, err := s.codec.Issue(auth.KindConfirmation, user.Email)
	if err != nil {
		s.log.Error("[auth][confirmation] issue token failed", "user_id", user.ID, "err", err)
		return
	}
	link := s.publicURL + "/auth/confirmation/" + token
	if err := s.mailer.SendConfirmationEmail(user.Email, link); err != nil {
		s.log.Error("[auth][confirmation] failed to send email", "user_id", user.ID, "err", err)
	}
}

// allow consults the throttle. Redis trouble is logged and the request let through.
func (s *AuthService) allow(ctx context.Context, scope, email string) error {
	err := s.throttle.Allow(ctx, scope, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		s.log.Info("[auth][throttle] limited", "scope", scope, "email", email)
		return ErrThrottled
	default:
		s.log.Warn("[auth][throttle] unavailable, allowing", "scope", scope, "err", err)
		return nil
	}
}

// clearThrottle gives email its budget back once the flow it guarded succeeded.
func (s *AuthService) clearThrottle(ctx context.Context, scope, email string) {
	r, ok := s.throttle.(ratelimit.Resetter)
	if !ok {
		return
	}
	if err := r.Reset(ctx, scope, email); err != nil {
		s.log.Warn("[auth][throttle] reset failed", "scope", scope, "err", err)
	}
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *AuthService) userByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}
