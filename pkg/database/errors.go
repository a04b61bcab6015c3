// Copyright 2025 Decentralized Rights Protocol
//
// Package database provides sentinel errors for repository operations.
// Explicit errors instead of nil, nil returns.

package database

import "errors"

// Sentinel errors for database operations
var (
	// ErrDecisionNotFound is returned when a decision record is not found
	ErrDecisionNotFound = errors.New("decision record not found")

	// ErrDisputeNotFound is returned when a dispute is not found
	ErrDisputeNotFound = errors.New("dispute not found")
)
