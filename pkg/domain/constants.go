package domain

// Defaults applied when the automaton configuration omits a value.
const (
	DefaultMaxRetries = 3
	DefaultPriority   = 0
)

// User-visible texts shared by the orchestrator and the transport.
const (
	MsgInvalidOption   = "Invalid option. Please try again."
	MsgSessionExpired  = "Your session expired. Starting a new session."
	MsgSystemError     = "System error. Please try again later."
	MsgTooManyAttempts = "Too many invalid attempts. Please try again later."
)

// Reserved answer and metadata keys.
const (
	KeyUserID   = "userId"
	KeyUserName = "userName"
	KeyPhone    = "phoneNumber"
	KeyInput    = "$input"
)
