// Package id generates identifiers for expectations and probe runs.
//
// IDs only need to be unique within a process; they show up in log lines and
// error messages so a failing expectation can be traced back to the
// registration that produced it.
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// UUID generates a random (v4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// Short generates a 16-character hex ID from a random UUID.
func Short() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

// Expectation returns an ID for an expectation registered on the named
// response method, e.g. "cookie-3f9a1c0e".
func Expectation(method string) string {
	return method + "-" + Short()[:8]
}

// Run returns an ID for one probe run.
func Run() string {
	return "run-" + Short()
}
