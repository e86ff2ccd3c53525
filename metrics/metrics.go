// Package metrics records verification counters and latencies.
package metrics

import "time"

// Metric names recorded by the gate.
const (
	EventVerification   = "verification"
	EventFallback       = "fallback_triggered"
	EventChallenge      = "challenge"
	EventAuditFailure   = "audit_failure"
	OpFacilitatorVerify = "facilitator_verify"
	OpOnChainVerify     = "onchain_verify"
	OpVerificationTotal = "verification_total"
)

// Label keys understood by every Recorder.
const (
	LabelNetwork = "network"
	LabelOutcome = "outcome"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
