package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/auth"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
)

// AuthService runs registration, login throttling, email confirmation and
// password resets. Each flow loads and saves the user in one transaction.
type AuthService struct {
	db       *gorm.DB
	issuer   *auth.Issuer
	notifier Notifier
	policy   models.LoginPolicy
	resetTTL time.Duration

	// Now is the clock used for throttling and token expiry
	Now func() time.Time
}

// absentUserHash is compared against when the email is unknown so that both
// rejections cost one bcrypt comparison.
var absentUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("auth: failed to prepare placeholder hash: %v", err)
	}
	return hash
})

func NewAuthService(db *gorm.DB, issuer *auth.Issuer, notifier Notifier, policy models.LoginPolicy, resetTTL time.Duration) *AuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AuthService{
		db:       db,
		issuer:   issuer,
		notifier: notifier,
		policy:   policy,
		resetTTL: resetTTL,
		Now:      time.Now,
	}
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (s *AuthService) users(tx *gorm.DB) repository.UserRepository {
	return repository.NewGormUserRepository(tx)
}

// withUser loads the user by email inside a transaction and saves it when fn
// asks for it. A flow error returned together with save=true is reported
// after the state change commits (failed logins, expired reset tokens).
func (s *AuthService) withUser(ctx context.Context, email string, fn func(u *models.User) (save bool, err error)) error {
	var flowErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users(tx)
		user, err := users.LockByEmail(email)
		if err != nil {
			return err
		}
		save, fnErr := fn(user)
		flowErr = fnErr
		if !save {
			return nil
		}
		if err := users.Update(user); err != nil {
			return fmt.Errorf("failed to save user %d: %w", user.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flowErr
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func newCode() string {
	return uuid.NewString()
}

// Register creates an unconfirmed account and sends its confirmation code
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	user := &models.User{Email: models.NormalizeEmail(email)}
	if !validEmail(user.Email) {
		return nil, &models.ValidationError{Field: "email", Err: models.ErrInvalidEmail}
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	code := newCode()
	if err := user.BeginConfirmation(code); err != nil {
		return nil, err
	}
	user.ResetState = models.ResetNone

	if err := s.users(s.db.WithContext(ctx)).Create(user); err != nil {
		return nil, translateWriteError(err, models.ErrDuplicateEmail)
	}
	if err := s.notifier.SendConfirmationCode(user.Email, code); err != nil {
		log.Printf("auth: failed to send confirmation code to %s: %v", user.Email, err)
	}
	log.Printf("auth: registered user %d", user.ID)
	return user, nil
}

// Login checks credentials under the throttle policy and issues a token.
// During a cooldown every attempt fails without checking the password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	now := s.Now()
	var loggedIn *models.User
	err := s.withUser(ctx, email, func(u *models.User) (bool, error) {
		if u.InCooldown(now) {
			return false, models.ErrLoginCooldown
		}
		if !u.CheckPassword(password) {
			u.RecordFailedLogin(now, s.policy)
			return true, models.ErrInvalidCredentials
		}
		u.RecordSuccessfulLogin(now)
		loggedIn = u
		return true, nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			// same bcrypt cost as a known account
			_ = bcrypt.CompareHashAndPassword(absentUserHash(), []byte(password))
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	token, expiresAt, err := s.issuer.Generate(loggedIn.ID, loggedIn.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: loggedIn}, nil
}

// ConfirmEmail moves the account to confirmed when the code matches
func (s *AuthService) ConfirmEmail(ctx context.Context, email, code string) error {
	err := s.withUser(ctx, email, func(u *models.User) (bool, error) {
		if err := u.Confirm(strings.TrimSpace(code)); err != nil {
			return false, err
		}
		return true, nil
	})
	if repository.IsNotFound(err) {
		return models.ErrInvalidConfirmCode
	}
	return err
}

// ResendConfirmation issues a fresh code. Unknown emails succeed silently.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	code := newCode()
	var address string
	err := s.withUser(ctx, email, func(u *models.User) (bool, error) {
		if err := u.BeginConfirmation(code); err != nil {
			return false, err
		}
		address = u.Email
		return true, nil
	})
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.notifier.SendConfirmationCode(address, code); err != nil {
		log.Printf("auth: failed to resend confirmation code to %s: %v", address, err)
	}
	return nil
}

// RequestPasswordReset issues a reset token. Unknown emails succeed silently
// so the endpoint does not reveal which addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	token := newCode()
	var address string
	err := s.withUser(ctx, email, func(u *models.User) (bool, error) {
		u.RequestReset(token, s.Now(), s.resetTTL)
		address = u.Email
		return true, nil
	})
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(address, token); err != nil {
		log.Printf("auth: failed to send password reset to %s: %v", address, err)
	}
	return nil
}

// RedeemPasswordReset sets a new password with a live reset token. An expired
// token is cleared as it is rejected.
func (s *AuthService) RedeemPasswordReset(ctx context.Context, email, token, newPassword string) error {
	err := s.withUser(ctx, email, func(u *models.User) (bool, error) {
		err := u.RedeemReset(strings.TrimSpace(token), newPassword, s.Now())
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, models.ErrResetTokenExpired):
			return true, err
		default:
			return false, err
		}
	})
	if repository.IsNotFound(err) {
		return models.ErrInvalidResetToken
	}
	return err
}

// GetUser returns the account by id
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users(s.db.WithContext(ctx)).GetByID(userID)
	if err != nil {
		return nil, lookupError(err, "user", userID)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users(tx)
		user, err := users.GetByID(userID)
		if err != nil {
			return lookupError(err, "user", userID)
		}
		if !user.CheckPassword(oldPassword) {
			return models.ErrInvalidCredentials
		}
		if err := user.SetPassword(newPassword); err != nil {
			return err
		}
		return users.Update(user)
	})
}

// LinkProfile attaches an individual to the account. Each individual can be
// linked to one account only.
func (s *AuthService) LinkProfile(ctx context.Context, userID, individualID uint) (*models.User, error) {
	var linked *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireIndividual(repository.NewIndividualRepository(tx), individualID); err != nil {
			return err
		}
		users := s.users(tx)
		user, err := users.GetByID(userID)
		if err != nil {
			return lookupError(err, "user", userID)
		}
		owner, err := users.GetByIndividualID(individualID)
		if err == nil && owner.ID != user.ID {
			return models.ErrProfileTaken
		}
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		user.LinkProfile(individualID)
		if err := users.Update(user); err != nil {
			return translateWriteError(err, models.ErrProfileTaken)
		}
		linked = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}
