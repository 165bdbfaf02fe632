package federation

import (
	"fmt"
	"strings"
)

// FedError is a tagged federation failure. Tags are stable identifiers a
// calling layer can branch on; Message is human-readable detail. Two
// FedErrors match under errors.Is when their tags are equal.
type FedError struct {
	Tag     string `json:"error"`
	Message string `json:"message"`

	cause error
}

func (e FedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Tag, e.Message)
	}
	return e.Tag
}

func (e FedError) Unwrap() error {
	return e.cause
}

func (e FedError) Is(target error) bool {
	t, ok := target.(FedError)
	return ok && t.Tag == e.Tag
}

func NewFedError(opts ...ErrOpt) FedError {
	var e FedError
	for _, o := range opts {
		o(&e)
	}
	return e
}

type ErrOpt = func(e *FedError)

func WithTag(tag string) ErrOpt {
	return func(e *FedError) {
		e.Tag = tag
	}
}

func WithMessage(msg string) ErrOpt {
	return func(e *FedError) {
		e.Message = msg
	}
}

func WithCause(err error) ErrOpt {
	return func(e *FedError) {
		e.cause = err
		if e.Message == "" {
			e.Message = err.Error()
		}
	}
}

// Matchable sentinels, one per failure tag. Use with errors.Is.
var (
	ErrInvalidScheme            = FedError{Tag: "InvalidScheme"}
	ErrNoDomain                 = FedError{Tag: "NoDomain"}
	ErrDomainNotAllowed         = FedError{Tag: "DomainNotAllowed"}
	ErrDomainMismatch           = FedError{Tag: "DomainMismatch"}
	ErrMalformedActorID         = FedError{Tag: "MalformedActorId"}
	ErrStorage                  = FedError{Tag: "Storage"}
	ErrNotDeleted               = FedError{Tag: "NotDeleted"}
	ErrMissingDeletionTimestamp = FedError{Tag: "MissingDeletionTimestamp"}
	ErrDeserialize              = FedError{Tag: "Deserialize"}
	ErrNetwork                  = FedError{Tag: "Network"}
	ErrDecode                   = FedError{Tag: "Decode"}
	ErrNoMatchingLink           = FedError{Tag: "NoMatchingLink"}
	ErrNoHref                   = FedError{Tag: "NoHref"}
	ErrPartialDelivery          = FedError{Tag: "PartialDeliveryFailure"}
)

func InvalidSchemeError(scheme string) FedError {
	return NewFedError(
		WithTag(ErrInvalidScheme.Tag),
		WithMessage(fmt.Sprintf("invalid federation id scheme: %q", scheme)),
	)
}

func DomainNotAllowedError(domain string) FedError {
	return NewFedError(
		WithTag(ErrDomainNotAllowed.Tag),
		WithMessage(fmt.Sprintf("%s not in federation allowlist", domain)),
	)
}

func DomainMismatchError(got, want string) FedError {
	return NewFedError(
		WithTag(ErrDomainMismatch.Tag),
		WithMessage(fmt.Sprintf("object id resolves under %s, delivery context claims %s", got, want)),
	)
}

func MalformedActorIDError(id string, err error) FedError {
	return NewFedError(
		WithTag(ErrMalformedActorID.Tag),
		WithMessage(fmt.Sprintf("actor id %q does not parse: %v", id, err)),
		WithCause(err),
	)
}

func StorageError(err error) FedError {
	return NewFedError(WithTag(ErrStorage.Tag), WithCause(err))
}

func DeserializeError(err error) FedError {
	return NewFedError(WithTag(ErrDeserialize.Tag), WithCause(err))
}

func NetworkError(err error) FedError {
	return NewFedError(WithTag(ErrNetwork.Tag), WithCause(err))
}

func DecodeError(err error) FedError {
	return NewFedError(WithTag(ErrDecode.Tag), WithCause(err))
}

// PartialDeliveryError reports the inboxes that could not be reached after
// retries. It does not abort delivery to the remaining recipients and does
// not prevent the activity-log insert.
type PartialDeliveryError struct {
	Failed []string
}

func (e PartialDeliveryError) Error() string {
	return fmt.Sprintf("%s: %d recipient(s) unreachable: %s",
		ErrPartialDelivery.Tag, len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e PartialDeliveryError) Is(target error) bool {
	if t, ok := target.(FedError); ok {
		return t.Tag == ErrPartialDelivery.Tag
	}
	_, ok := target.(PartialDeliveryError)
	return ok
}
