// Package services provides shared error classification and context
// plumbing used by the capture pipeline and its external-call adapters.
package services
