package account

import (
	"context"
	"fmt"
	"time"

	"github.com/qmuntal/stateless"
)

// Trigger is a lifecycle input derived from a billing notification or the clock.
type Trigger string

const (
	TriggerPaymentSucceeded  Trigger = "payment_succeeded"
	TriggerPaymentFailed     Trigger = "payment_failed"
	TriggerCancelScheduled   Trigger = "cancel_scheduled"
	TriggerCancelReverted    Trigger = "cancel_reverted"
	TriggerGraceExpired      Trigger = "grace_expired"
	TriggerSubscriptionEnded Trigger = "subscription_ended"
)

// newMachine builds the lifecycle machine for one account snapshot.
// Guards read acc and now; triggers that do not apply in a state are
// ignored rather than rejected so that redelivered or reordered
// notifications are harmless.
func newMachine(acc *Account, now time.Time) *stateless.StateMachine {
	m := stateless.NewStateMachine(acc.Status)

	graceExpired := func(context.Context, ...any) bool {
		return acc.LastPaymentFailureAt != nil && ShouldSuspend(*acc.LastPaymentFailureAt, now)
	}
	cancelOnly := func(context.Context, ...any) bool {
		return acc.GraceCause == GraceCancelScheduled
	}

	m.Configure(StatusActive).
		Permit(TriggerPaymentFailed, StatusGracePeriod).
		Permit(TriggerCancelScheduled, StatusGracePeriod).
		Permit(TriggerSubscriptionEnded, StatusGracePeriod).
		Ignore(TriggerPaymentSucceeded).
		Ignore(TriggerCancelReverted).
		Ignore(TriggerGraceExpired)

	m.Configure(StatusGracePeriod).
		Permit(TriggerPaymentSucceeded, StatusActive).
		Permit(TriggerCancelReverted, StatusActive, cancelOnly).
		Ignore(TriggerCancelReverted, func(ctx context.Context, args ...any) bool { return !cancelOnly(ctx, args...) }).
		Permit(TriggerGraceExpired, StatusSuspended, graceExpired).
		Ignore(TriggerGraceExpired, func(ctx context.Context, args ...any) bool { return !graceExpired(ctx, args...) }).
		Ignore(TriggerPaymentFailed).
		Ignore(TriggerCancelScheduled).
		Ignore(TriggerSubscriptionEnded)

	m.Configure(StatusSuspended).
		Permit(TriggerPaymentSucceeded, StatusActive).
		Ignore(TriggerPaymentFailed).
		Ignore(TriggerCancelScheduled).
		Ignore(TriggerCancelReverted).
		Ignore(TriggerGraceExpired).
		Ignore(TriggerSubscriptionEnded)

	return m
}

// next fires trigger on a machine built from acc and returns the resulting status.
func next(ctx context.Context, acc *Account, trigger Trigger, now time.Time) (Status, error) {
	m := newMachine(acc, now)
	if err := m.FireCtx(ctx, trigger); err != nil {
		return acc.Status, fmt.Errorf("%w: %s in %s: %v", ErrInvalidTrigger, trigger, acc.Status, err)
	}
	st, err := m.State(ctx)
	if err != nil {
		return acc.Status, fmt.Errorf("%w: %v", ErrFailedToTransition, err)
	}
	return st.(Status), nil
}
