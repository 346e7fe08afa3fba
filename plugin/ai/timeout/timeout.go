// Package timeout defines centralized timeout constants for LLM operations.
package timeout

import "time"

const (
	// LLMTimeout bounds one chat completion including retries.
	LLMTimeout = 30 * time.Second

	// StreamTimeout is the timeout for streaming responses from LLM.
	StreamTimeout = 2 * time.Minute

	// LLMMaxRetries is the number of retries after the first failed attempt.
	LLMMaxRetries = 2

	// BreakerOpenTimeout is how long the circuit stays open before probing again.
	BreakerOpenTimeout = 30 * time.Second

	// BreakerFailureThreshold is the number of consecutive failures that opens the circuit.
	BreakerFailureThreshold = 5

	// SearchLogTimeout bounds the fire-and-forget search log write.
	SearchLogTimeout = 2 * time.Second
)
