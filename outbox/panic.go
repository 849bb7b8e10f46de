package outbox

import "github.com/cockroachdb/errors"

func errorsFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "sender panicked")
	}
	return errors.Newf("sender panicked: %v", r)
}
