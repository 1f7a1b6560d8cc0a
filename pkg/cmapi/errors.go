package cmapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the semantic category of a translated API failure.
type Kind int

// Error kinds. Only the kind is guaranteed stable across releases; message text is not.
const (
	KindUnknownOperation Kind = iota
	KindListFailed
	KindGetFailed
	KindCreateFailed
	KindUpdateFailed
	KindDeleteFailed
	KindOperationBusy
	KindUnsupportedOnResourceVariant
	KindMalformedEventPayload
	KindSignatureComputationUnavailable
)

var kindNames = map[Kind]string{
	KindUnknownOperation:                "UnknownOperation",
	KindListFailed:                      "ListFailed",
	KindGetFailed:                       "GetFailed",
	KindCreateFailed:                    "CreateFailed",
	KindUpdateFailed:                    "UpdateFailed",
	KindDeleteFailed:                    "DeleteFailed",
	KindOperationBusy:                   "OperationBusy",
	KindUnsupportedOnResourceVariant:    "UnsupportedOnResourceVariant",
	KindMalformedEventPayload:           "MalformedEventPayload",
	KindSignatureComputationUnavailable: "SignatureComputationUnavailable",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Severity is the default severity attached to a registry entry.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Sentinel errors matched by errors.Is against a translated *Error of the same kind.
var (
	ErrUnknownOperation                = errors.New("unknown operation")
	ErrListFailed                      = errors.New("list failed")
	ErrGetFailed                       = errors.New("get failed")
	ErrCreateFailed                    = errors.New("create failed")
	ErrUpdateFailed                    = errors.New("update failed")
	ErrDeleteFailed                    = errors.New("delete failed")
	ErrOperationBusy                   = errors.New("operation busy")
	ErrUnsupportedOnResourceVariant    = errors.New("unsupported on resource variant")
	ErrMalformedEventPayload           = errors.New("malformed event payload")
	ErrSignatureComputationUnavailable = errors.New("signature computation unavailable")
)

var kindSentinels = map[Kind]error{
	KindUnknownOperation:                ErrUnknownOperation,
	KindListFailed:                      ErrListFailed,
	KindGetFailed:                       ErrGetFailed,
	KindCreateFailed:                    ErrCreateFailed,
	KindUpdateFailed:                    ErrUpdateFailed,
	KindDeleteFailed:                    ErrDeleteFailed,
	KindOperationBusy:                   ErrOperationBusy,
	KindUnsupportedOnResourceVariant:    ErrUnsupportedOnResourceVariant,
	KindMalformedEventPayload:           ErrMalformedEventPayload,
	KindSignatureComputationUnavailable: ErrSignatureComputationUnavailable,
}

// Static errors for err113 compliance.
var (
	ErrNoMoreItems          = errors.New("no more items")
	ErrNoActiveStep         = errors.New("execution has no active step")
	ErrStepNotWaiting       = errors.New("step is not waiting for input")
	ErrStepNotFound         = errors.New("execution has no step for action")
	ErrInvalidSignature     = errors.New("invalid event signature")
	ErrMissingSignature     = errors.New("missing event signature")
	ErrConfigRequired       = errors.New("config is required")
	ErrOrgIDRequired        = errors.New("IMS organization ID is required")
	ErrAPIKeyRequired       = errors.New("API key is required")
	ErrCredentialsRequired  = errors.New("access token or client credentials are required")
	ErrUnexpectedStatus     = errors.New("unexpected HTTP status")
	ErrNoRedirectLink       = errors.New("response did not contain a redirect link")
	ErrExecutionRecordEmpty = errors.New("execution record is empty")
)

// Error is a translated API failure.
type Error struct {
	Kind       Kind
	Operation  Operation
	Severity   Severity
	StatusCode int
	URL        string
	// Detail and Code come from a simple JSON error body; Validation from a problem body.
	Detail     string
	Code       string
	Validation []string
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return kindSentinels[e.Kind]
}

// AsError returns the translated error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	apiErr := &Error{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsKind checks if err is a translated error of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsError(err)

	return ok && apiErr.Kind == kind
}

// IsBusy checks if the operation was rejected because the resource is busy.
func IsBusy(err error) bool {
	return IsKind(err, KindOperationBusy)
}

// IsUnsupported checks if the operation is not available for the resource variant.
func IsUnsupported(err error) bool {
	return IsKind(err, KindUnsupportedOnResourceVariant)
}

// IsNotFound checks if the translated error came from a 404 response.
func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)

	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the translated error came from a 401 response.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)

	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden checks if the translated error came from a 403 response.
func IsForbidden(err error) bool {
	apiErr, ok := AsError(err)

	return ok && apiErr.StatusCode == http.StatusForbidden
}
