package handshake

import (
	"errors"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

// Outcome classifies a coordinator result
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeRejected is terminal for the request
	OutcomeRejected
	// OutcomeUnavailable means a dependency failed and the caller may retry
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// UnavailableReason is the client-facing reason for every dependency failure
const UnavailableReason = "service temporarily unavailable"

// Status is embedded in every coordinator result
type Status struct {
	Outcome Outcome
	Reason  string
	// Err is the underlying failure, for logging only
	Err error
}

// Success reports whether the operation completed
func (s Status) Success() bool {
	return s.Outcome == OutcomeOK
}

// Retryable reports whether the failure was transient
func (s Status) Retryable() bool {
	return s.Outcome == OutcomeUnavailable
}

type OriginAuthResult struct {
	Status
	Token string
}

type ServerJoinResult struct {
	Status
	IP        string
	Port      int
	AuthToken string
}

type SelfJoinResult struct {
	Status
	ID             string
	AuthToken      string
	PersistentData []byte
}

type PersistenceResult struct {
	Status
	// Written is false when the blob was dropped for having the wrong length
	Written bool
}

type HeartbeatResult struct {
	Status
}

type RegisterResult struct {
	Status
	Server model.GameServer
}

type RemoveResult struct {
	Status
}

var okStatus = Status{Outcome: OutcomeOK}

// statusFor converts an error into a Status. Anything that is not a known
// rejection is treated as a dependency failure so it is never reported as a
// plain authorization failure.
func statusFor(err error) Status {
	if err == nil {
		return okStatus
	}
	if model.IsRejection(err) {
		return Status{Outcome: OutcomeRejected, Reason: reasonFor(err), Err: err}
	}
	return Status{Outcome: OutcomeUnavailable, Reason: UnavailableReason, Err: err}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, model.ErrAccountBanned):
		return "you are banned"
	case errors.Is(err, model.ErrInvalidDescriptor):
		return err.Error()
	}
	for _, sentinel := range []error{
		model.ErrAccountNotFound,
		model.ErrPersistenceSizeMismatch,
		model.ErrInvalidProofToken,
		model.ErrMissingGameAccess,
		model.ErrInvalidSessionToken,
		model.ErrSessionExpired,
		model.ErrServerNotFound,
		model.ErrWrongPassword,
		model.ErrOriginMismatch,
		model.ErrNotCurrentServer,
		model.ErrRemoteAuthRejected,
		model.ErrAccountExists,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
