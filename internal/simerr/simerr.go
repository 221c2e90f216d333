package simerr

import (
	"fmt"
	"strconv"

	"github.com/yola1107/kratos/v2/errors"
)

const (
	ReasonConfiguration      = "CONFIGURATION"
	ReasonRejectionExhausted = "REJECTION_EXHAUSTED"
	ReasonEmptyTable         = "EMPTY_TABLE"
	ReasonNoWins             = "NO_WINS"
	ReasonInvalidQuery       = "INVALID_QUERY"
)

var (
	// ErrConfiguration is a broken game definition or weighting profile. Never retried.
	ErrConfiguration = errors.InternalServer(ReasonConfiguration, "configuration error")
	// ErrRejectionExhausted is a criterion that rejection sampling could not fill.
	ErrRejectionExhausted = errors.InternalServer(ReasonRejectionExhausted, "rejection sampling exhausted")
	// ErrEmptyTable is a statistics query on a table without records.
	ErrEmptyTable = errors.NotFound(ReasonEmptyTable, "outcome table is empty")
	// ErrNoWins is a hit-rate query on a table where nothing pays.
	ErrNoWins = errors.NotFound(ReasonNoWins, "outcome table has no winning records")
	// ErrInvalidQuery is a malformed payout or force lookup.
	ErrInvalidQuery = errors.BadRequest(ReasonInvalidQuery, "invalid query")
)

// Configuration returns a configuration error with a formatted message.
func Configuration(format string, args ...any) *errors.Error {
	return errors.Newf(500, ReasonConfiguration, format, args...)
}

// InvalidQuery returns a bad request error with a formatted message.
func InvalidQuery(format string, args ...any) *errors.Error {
	return errors.Newf(400, ReasonInvalidQuery, format, args...)
}

// Exhausted reports a criterion whose attempts ran out.
func Exhausted(profile, criterion string, attempts int, seed uint64) *errors.Error {
	return errors.Newf(500, ReasonRejectionExhausted,
		"criterion %q of profile %q not satisfied after %d attempts", criterion, profile, attempts).
		WithMetadata(map[string]string{
			"profile":   profile,
			"criterion": criterion,
			"seed":      strconv.FormatUint(seed, 10),
		})
}

// Round attaches the reproduction context of a round to err. Kratos errors keep their code and
// reason, anything else becomes a configuration error carrying err as its cause.
func Round(err error, profile, criterion string, seed uint64, id uint64) error {
	if err == nil {
		return nil
	}
	md := map[string]string{
		"profile":   profile,
		"criterion": criterion,
		"seed":      strconv.FormatUint(seed, 10),
		"round":     strconv.FormatUint(id, 10),
	}
	se := errors.FromError(err)
	if se == nil || se.Reason == errors.UnknownReason {
		return Configuration("round %d: %v", id, err).WithCause(err).WithMetadata(md)
	}
	for k, v := range se.Metadata {
		if _, ok := md[k]; !ok {
			md[k] = v
		}
	}
	return se.WithMetadata(md)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return errors.Reason(err) == ReasonConfiguration }

// IsRejectionExhausted reports whether err is a rejection exhaustion.
func IsRejectionExhausted(err error) bool { return errors.Reason(err) == ReasonRejectionExhausted }

// IsEmptyTable reports whether err is an empty table error.
func IsEmptyTable(err error) bool { return errors.Reason(err) == ReasonEmptyTable }

// IsInvalidQuery reports whether err is an invalid query error.
func IsInvalidQuery(err error) bool { return errors.Reason(err) == ReasonInvalidQuery }

// Describe renders err with its metadata for log lines.
func Describe(err error) string {
	se := errors.FromError(err)
	if se == nil {
		return ""
	}
	if len(se.Metadata) == 0 {
		return se.Message
	}
	return fmt.Sprintf("%s %v", se.Message, se.Metadata)
}

// Metadata returns the reproduction context attached to err, or nil.
func Metadata(err error) map[string]string {
	se := errors.FromError(err)
	if se == nil {
		return nil
	}
	return se.Metadata
}
