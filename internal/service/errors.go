package service

// ErrorKind clasifica los fallos que AuthService devuelve al transporte.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindAuth
	KindExpired
	KindStore
	KindDelivery
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	case KindAuth:
		return "auth"
	case KindExpired:
		return "expired"
	case KindStore:
		return "store"
	case KindDelivery:
		return "delivery"
	default:
		return "internal"
	}
}

// Error es el error de dominio de AuthService. Message es seguro para mostrar
// al cliente; Err guarda la causa original para logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is permite errors.Is(err, ErrAuth) y similares: un objetivo sin mensaje
// coincide con cualquier error del mismo tipo.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrExpired    = &Error{Kind: KindExpired}
	ErrStore      = &Error{Kind: KindStore}
	ErrDelivery   = &Error{Kind: KindDelivery}
	ErrInternal   = &Error{Kind: KindInternal}
)

const (
	msgGenericFailure = "Something went wrong, try again later"
	msgTimeout        = "Request timed out, try again"
	msgEmailFailure   = "Could not send email, try again later"
)

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
