package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/contextkeys"
	"github.com/requisify/requisify/pkg/policy"
	"github.com/requisify/requisify/pkg/secaudit"
)

// DeniedError is the loud write rejection carrying the evaluator's reason.
// Distinct from validation errors so callers can message it separately.
type DeniedError struct {
	Resource policy.Resource
	Op       policy.Operation
	Reason   policy.DenyReason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("guard: %s %s denied (%s)", e.Op, e.Resource, e.Reason)
}

// Interceptor runs the policy check, the tenant-invariant stamp and the
// security-event emission for a write, inside the caller's transaction.
// A returned error means the caller must abort that transaction; the audit
// write has already happened on its own privileged path.
type Interceptor struct {
	evaluator *policy.Evaluator
	recorder  secaudit.Recorder
}

// NewInterceptor creates an interceptor over the evaluator and recorder
func NewInterceptor(evaluator *policy.Evaluator, recorder secaudit.Recorder) *Interceptor {
	return &Interceptor{evaluator: evaluator, recorder: recorder}
}

// AuthorizeCreate checks the policy for a create and stamps the record's
// tenant. Rejections are typed: *DeniedError for policy denials,
// ErrNoTenant / ErrCrossTenantWrite for invariant violations.
func (i *Interceptor) AuthorizeCreate(ctx context.Context, c *claims.Claims, resource policy.Resource, record TenantStampable, row policy.RowMeta) error {
	if decision := i.evaluator.CheckWrite(c, resource, policy.OpCreate, row); !decision.Allowed {
		i.emitDenial(ctx, c, resource, policy.OpCreate, row, decision.Reason)
		return &DeniedError{Resource: resource, Op: policy.OpCreate, Reason: decision.Reason}
	}

	if err := Stamp(c, record); err != nil {
		i.emitStampFailure(ctx, c, resource, err)
		return err
	}
	return nil
}

// AuthorizeMutation checks the policy for an update or delete
func (i *Interceptor) AuthorizeMutation(ctx context.Context, c *claims.Claims, resource policy.Resource, op policy.Operation, row policy.RowMeta) error {
	if !op.IsWrite() {
		return fmt.Errorf("guard: %s is not a mutation", op)
	}
	if decision := i.evaluator.CheckWrite(c, resource, op, row); !decision.Allowed {
		i.emitDenial(ctx, c, resource, op, row, decision.Reason)
		return &DeniedError{Resource: resource, Op: op, Reason: decision.Reason}
	}
	return nil
}

func (i *Interceptor) emitDenial(ctx context.Context, c *claims.Claims, resource policy.Resource, op policy.Operation, row policy.RowMeta, reason policy.DenyReason) {
	event := &secaudit.Event{
		Type:      secaudit.EventAccessDeniedWrite,
		Severity:  secaudit.SeverityWarning,
		Resource:  string(resource),
		Blocked:   true,
		Detail:    fmt.Sprintf("%s denied: %s", op, reason),
		RequestID: contextkeys.GetRequestID(ctx),
	}
	if c != nil {
		event.UserID = &c.UserID
		event.ClaimedOrgID = c.TenantID
	}
	event.TargetOrgID = row.TenantID

	if reason == policy.DenyCrossTenant {
		event.Type = secaudit.EventCrossTenantWrite
		event.Severity = secaudit.SeverityCritical
	}

	// Best effort by contract: the recorder runs privileged and detached,
	// a failure here must not mask the denial itself
	_ = i.recorder.Record(ctx, event)
}

func (i *Interceptor) emitStampFailure(ctx context.Context, c *claims.Claims, resource policy.Resource, err error) {
	event := &secaudit.Event{
		Severity:  secaudit.SeverityCritical,
		Resource:  string(resource),
		Blocked:   true,
		Detail:    err.Error(),
		RequestID: contextkeys.GetRequestID(ctx),
	}
	if c != nil {
		event.UserID = &c.UserID
		event.ClaimedOrgID = c.TenantID
	}
	if errors.Is(err, ErrNoTenant) {
		event.Type = secaudit.EventInvariantViolation
	} else {
		event.Type = secaudit.EventCrossTenantWrite
	}
	_ = i.recorder.Record(ctx, event)
}
