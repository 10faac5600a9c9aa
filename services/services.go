package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
)

// ErrNotFound is returned when the addressed record does not exist or is
// hidden from the caller.
var ErrNotFound = errors.New("record not found")

// EventPublisher receives record-change notifications after a successful
// commit. realtime.Hub implements it.
type EventPublisher interface {
	Publish(eventType, entity string, id, individualID uint)
}

// Event types, kept in step with the realtime package
const (
	eventCreated = "record.created"
	eventUpdated = "record.updated"
	eventDeleted = "record.deleted"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, uint, uint) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// Notifier delivers confirmation codes and reset tokens to the account owner
type Notifier interface {
	SendConfirmationCode(email, code string) error
	SendPasswordReset(email, token string) error
}

// LogNotifier writes codes to the log. It stands in for a mail transport.
type LogNotifier struct{}

func (LogNotifier) SendConfirmationCode(email, code string) error {
	log.Printf("notifier: confirmation code for %s: %s", email, code)
	return nil
}

func (LogNotifier) SendPasswordReset(email, token string) error {
	log.Printf("notifier: password reset token for %s: %s", email, token)
	return nil
}

// notFound wraps ErrNotFound with the entity and id
func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// translateWriteError turns constraint violations into model sentinels.
// dup is returned for unique violations.
func translateWriteError(err error, dup error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", models.ErrIndividualNotFound, err)
	case dup != nil && repository.IsDuplicateKey(err):
		return fmt.Errorf("%w: %v", dup, err)
	default:
		return err
	}
}

// lookupError maps a missing row to ErrNotFound and passes anything else through
func lookupError(err error, entity string, id uint) error {
	if repository.IsNotFound(err) {
		return notFound(entity, id)
	}
	return err
}
