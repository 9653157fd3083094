package auth

// Messages shown to the user when a call fails without a server message.
const (
	SendOTPFailedMsg   = "Failed to send OTP. Please try again."
	VerifyOTPFailedMsg = "Failed to verify OTP. Please try again."
)

// Failure is a user-facing error. Err keeps the cause for logging.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}
