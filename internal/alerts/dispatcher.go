package alerts

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wonny/projeval/internal/contracts"
)

// DeliveryReport delivery outcome per run; failures are reported here, never returned
type DeliveryReport struct {
	Attempted int
	Delivered []string // alert IDs
	Failed    []string // alert IDs
	Skipped   int      // below deliverable severity
}

// Dispatcher best-effort forwarding of critical/high alerts
// 전송 실패는 로그 + 집계만 하고 호출자에게 에러를 돌려주지 않음 (알림 저장은 이미 완료된 상태)
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewDispatcher notifier nil disables delivery; limiter nil means unthrottled
func NewDispatcher(notifier Notifier, limiter *rate.Limiter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		limiter:  limiter,
		log:      log.With().Str("component", "alerts.dispatcher").Logger(),
	}
}

// Dispatch forwards deliverable alerts in order
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []contracts.PlatformAlert) DeliveryReport {
	var report DeliveryReport

	for _, a := range alerts {
		if !a.Severity.Deliverable() || d.notifier == nil {
			report.Skipped++
			continue
		}
		report.Attempted++

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				d.log.Warn().Err(err).Str("alert_id", a.ID).Msg("delivery throttled out")
				report.Failed = append(report.Failed, a.ID)
				continue
			}
		}

		if err := d.notifier.Notify(ctx, a); err != nil {
			d.log.Warn().Err(err).
				Str("alert_id", a.ID).
				Str("type", string(a.Type)).
				Msg("alert delivery failed")
			report.Failed = append(report.Failed, a.ID)
			continue
		}
		report.Delivered = append(report.Delivered, a.ID)
	}

	if report.Attempted > 0 {
		d.log.Info().
			Int("attempted", report.Attempted).
			Int("delivered", len(report.Delivered)).
			Int("failed", len(report.Failed)).
			Msg("alert delivery completed")
	}

	return report
}
