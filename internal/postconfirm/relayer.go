package postconfirm

import "context"

// Relayer is the outbound SMTP submission contract. Sendmail is best-effort:
// the core does not retry within a session, and a failure is logged by the
// caller, never turned into a session verdict.
type Relayer interface {
	Sendmail(ctx context.Context, from string, recipients []string, rawMessage []byte) error
}
