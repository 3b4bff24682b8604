package aws

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

// Failure reasons attached to account and region results.
const (
	ReasonCredentials    = "credentials_unavailable"
	ReasonAccessDenied   = "access_denied"
	ReasonRegionDisabled = "region_disabled"
	ReasonThrottled      = "throttled"
	ReasonCanceled       = "canceled"
	ReasonAPIError       = "api_error"
	ReasonUnknown        = "error"
)

// Classify maps an SDK error to a failure reason.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCredentialsUnavailable) {
		return ReasonCredentials
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCanceled
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return ReasonUnknown
	}
	switch ae.ErrorCode() {
	case "UnauthorizedOperation", "AccessDenied", "AccessDeniedException", "AuthFailure":
		return ReasonAccessDenied
	case "OptInRequired", "InvalidClientTokenId", "UnrecognizedClientException":
		return ReasonRegionDisabled
	case "RequestLimitExceeded", "Throttling", "ThrottlingException":
		return ReasonThrottled
	}
	return ReasonAPIError
}
