package api

import (
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// moveRequestMetrics times the stages of a move request. Moves are the hot
// path of the API and the one place where storage contention shows up, so
// they get per-stage timings where the other handlers only log errors.
type moveRequestMetrics struct {
	logger       *log.Logger
	start        time.Time
	authDuration time.Duration
	moveDuration time.Duration
	fromColumn   domain.Status
	toColumn     domain.Status
	crossColumn  bool
	errorStage   string
}

func newMoveRequestMetrics(logger *log.Logger) *moveRequestMetrics {
	return &moveRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *moveRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *moveRequestMetrics) ObserveMove(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.moveDuration = duration
}

func (m *moveRequestMetrics) SetColumns(from, to domain.Status) {
	m.fromColumn = from
	m.toColumn = to
	m.crossColumn = from != to
}

func (m *moveRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *moveRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":    "/api/tasks/:id/move",
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}

	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.moveDuration > 0 {
		fields["move_ms"] = durationToMillis(m.moveDuration)
	}
	if m.fromColumn != "" {
		fields["from_column"] = string(m.fromColumn)
		fields["to_column"] = string(m.toColumn)
		fields["cross_column"] = m.crossColumn
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("tasks.move.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
