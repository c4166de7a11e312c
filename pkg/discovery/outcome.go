package discovery

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/modelfinder/pkg/hierarchy"
	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
)

// Scan outcomes, recorded as the "outcome" attribute of scan and tool metrics.
const (
	OutcomeOK                = "ok"
	OutcomeParseError        = "parse_error"
	OutcomeResolutionError   = "resolution_error"
	OutcomeDirectoryNotFound = "directory_not_found"
	OutcomeCanceled          = "canceled"
	OutcomeError             = "error"
)

// Outcome classifies the error returned by Scan.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, phpast.ErrParse):
		return OutcomeParseError
	case errors.Is(err, hierarchy.ErrResolution):
		return OutcomeResolutionError
	case errors.Is(err, ErrDirectoryNotFound):
		return OutcomeDirectoryNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
