package mockstore

import (
	"errors"
	"time"

	"legitid/pkg/platform/sentinel"
)

// rfc3339Micro matches the timestamp rendering PostgREST produces, so rows
// decode identically against either backend.
const rfc3339Micro = "2006-01-02T15:04:05.999999Z07:00"

func timeNow() time.Time { return time.Now().UTC() }

func errorsIsNoRows(err error) bool {
	return errors.Is(err, sentinel.ErrNoRows)
}
