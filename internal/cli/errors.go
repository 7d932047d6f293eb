package cli

import "errors"

// configError marks a fatal configuration problem, mapped to exit code 2
// per §6.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func wrapConfigError(err error) error {
	if err == nil {
		return nil
	}
	return configError{err: err}
}

func isConfigError(err error) bool {
	var ce configError
	return errors.As(err, &ce)
}

// hardwareInitError marks an unrecoverable hardware initialization
// failure, mapped to exit code 3 per §6.
type hardwareInitError struct{ err error }

func (e hardwareInitError) Error() string { return e.err.Error() }
func (e hardwareInitError) Unwrap() error { return e.err }

func wrapHardwareInitError(err error) error {
	if err == nil {
		return nil
	}
	return hardwareInitError{err: err}
}

func isHardwareInitError(err error) bool {
	var he hardwareInitError
	return errors.As(err, &he)
}
