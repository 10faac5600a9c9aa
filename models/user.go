package models

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// EmailState is the confirmation state of a user's email address.
type EmailState string

const (
	EmailUnconfirmed EmailState = "unconfirmed"
	EmailConfirmed   EmailState = "confirmed"
)

// ResetState tracks whether a password reset token is outstanding.
type ResetState string

const (
	ResetNone    ResetState = "none"
	ResetPending ResetState = "pending"
)

// LoginPolicy configures login throttling.
type LoginPolicy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// User is an administrative login keyed by email, optionally linked to the
// individual it describes. Throttling counters and the confirmation/reset
// state machines are only changed through the methods below.
type User struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	IndividualID *uint       `json:"individual_id,omitempty" gorm:"uniqueIndex"`
	Individual   *Individual `json:"-" gorm:"foreignKey:IndividualID;constraint:OnDelete:SET NULL"`
	PasswordHash string      `json:"-" gorm:"column:password;not null"` // "-" means don't include in JSON responses

	EmailState       EmailState `json:"email_state" gorm:"not null;default:unconfirmed"`
	EmailConfirmCode *string    `json:"-" gorm:""`

	ResetState             ResetState `json:"-" gorm:"not null;default:none"`
	PasswordReset          *string    `json:"-" gorm:"column:password_reset"`
	PasswordResetExpiresAt *time.Time `json:"-" gorm:""`

	LoginCount        int        `json:"-" gorm:"not null;default:0"`
	LastFailedLoginAt *time.Time `json:"-" gorm:""`
	Cooldown          *time.Time `json:"-" gorm:"column:cooldown"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty" gorm:"column:timestamp"`

	ProfileComplete bool      `json:"profile_complete" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("password", ErrWeakPassword)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

func (u *User) IsConfirmed() bool {
	return u.EmailState == EmailConfirmed
}

// BeginConfirmation puts the user in the unconfirmed state with a fresh code.
func (u *User) BeginConfirmation(code string) error {
	if u.IsConfirmed() {
		return ErrAlreadyConfirmed
	}
	u.EmailState = EmailUnconfirmed
	u.EmailConfirmCode = &code
	return nil
}

// Confirm moves unconfirmed -> confirmed when code matches. On any error the
// user is left unchanged.
func (u *User) Confirm(code string) error {
	if u.IsConfirmed() {
		return ErrAlreadyConfirmed
	}
	if u.EmailConfirmCode == nil || !tokensEqual(*u.EmailConfirmCode, code) {
		return ErrInvalidConfirmCode
	}
	u.EmailState = EmailConfirmed
	u.EmailConfirmCode = nil
	return nil
}

// InCooldown reports whether logins are blocked at now.
func (u *User) InCooldown(now time.Time) bool {
	return u.Cooldown != nil && now.Before(*u.Cooldown)
}

// RecordFailedLogin counts a failed attempt. Reaching policy.MaxAttempts
// within the window starts a cooldown.
func (u *User) RecordFailedLogin(now time.Time, policy LoginPolicy) {
	if u.Cooldown != nil && !now.Before(*u.Cooldown) {
		u.LoginCount = 0
		u.Cooldown = nil
	}
	if u.LastFailedLoginAt != nil && now.Sub(*u.LastFailedLoginAt) > policy.Cooldown {
		u.LoginCount = 0
	}
	u.LoginCount++
	u.LastFailedLoginAt = &now
	if policy.MaxAttempts > 0 && u.LoginCount >= policy.MaxAttempts {
		until := now.Add(policy.Cooldown)
		u.Cooldown = &until
	}
}

// RecordSuccessfulLogin clears throttling and stamps the login time.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.clearThrottle()
	u.LastLoginAt = &now
}

func (u *User) clearThrottle() {
	u.LoginCount = 0
	u.LastFailedLoginAt = nil
	u.Cooldown = nil
}

// RequestReset moves to the pending state. An outstanding token is replaced.
func (u *User) RequestReset(token string, now time.Time, ttl time.Duration) {
	expires := now.Add(ttl)
	u.ResetState = ResetPending
	u.PasswordReset = &token
	u.PasswordResetExpiresAt = &expires
}

// RedeemReset sets a new password if token matches a live pending reset.
// An expired token is cleared (pending -> none) and reported as expired.
func (u *User) RedeemReset(token, newPassword string, now time.Time) error {
	if u.ResetState != ResetPending || u.PasswordReset == nil {
		return ErrNoResetPending
	}
	if u.PasswordResetExpiresAt != nil && !now.Before(*u.PasswordResetExpiresAt) {
		u.cancelReset()
		return ErrResetTokenExpired
	}
	if !tokensEqual(*u.PasswordReset, token) {
		return ErrInvalidResetToken
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.cancelReset()
	u.clearThrottle()
	return nil
}

func (u *User) cancelReset() {
	u.ResetState = ResetNone
	u.PasswordReset = nil
	u.PasswordResetExpiresAt = nil
}

// LinkProfile attaches the individual this account describes.
func (u *User) LinkProfile(individualID uint) {
	u.IndividualID = &individualID
	u.ProfileComplete = true
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
