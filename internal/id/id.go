// Package id generates the opaque job identifiers handed to clients.
package id

import "github.com/google/uuid"

func New() string {
	return "job_" + uuid.NewString()
}
