package upload

// ErrorKind classifies why a request did not produce a result.
type ErrorKind int

const (
	KindValidation      ErrorKind = iota // rejected locally before any network call
	KindAuthorization                    // signed out or not entitled, rejected locally
	KindQuotaExceeded                    // backend answered 429
	KindPremiumRequired                  // backend answered 403
	KindTransient                        // network failure or other non-2xx
	KindRender                           // notation could not be rendered
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindPremiumRequired:
		return "premium_required"
	case KindTransient:
		return "transient"
	case KindRender:
		return "render"
	default:
		return ""
	}
}

// Error is a user-facing failure with the underlying cause attached.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NeedsUpgrade reports whether the failure should be answered with a subscription prompt.
func (e *Error) NeedsUpgrade() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindQuotaExceeded, KindPremiumRequired:
		return true
	case KindAuthorization:
		return e.Message == MsgPremiumOnly
	default:
		return false
	}
}
