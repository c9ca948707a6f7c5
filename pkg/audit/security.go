// Package audit logs security-relevant connector events for SIEM consumption.
// Every event carries a JSON payload in the event_json field alongside flat
// zap fields, under the "security_audit" logger name.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionRejected is logged when libinjection screening rejects a write.
	EventInjectionRejected SecurityEventType = "sql_injection_rejected"
	// EventPoolCheck is logged for every liveness check requested over HTTP.
	EventPoolCheck SecurityEventType = "pool_check"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID that audit events pick up from ctx.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID in ctx, or uuid.Nil.
func RequestIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(requestIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID uuid.UUID         `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails describes a value rejected by injection screening.
// The value itself is never logged, only its libinjection fingerprint.
type InjectionDetails struct {
	Table       string `json:"table"`
	Column      string `json:"column"`
	Fingerprint string `json:"fingerprint"`
}

// PoolCheckDetails describes the outcome of a pool liveness check.
type PoolCheckDetails struct {
	Pool  string `json:"pool"`
	Kind  string `json:"kind,omitempty"`
	Alive bool   `json:"alive"`
	Error string `json:"error,omitempty"`
}

// SecurityAuditor writes security events to a dedicated logger.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" name.
// A nil logger discards events.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logging.OrNop(logger).Named("security_audit")}
}

// LogInjectionRejected records a write rejected by injection screening.
// Logged at ERROR with critical severity.
func (a *SecurityAuditor) LogInjectionRejected(ctx context.Context, details InjectionDetails) {
	event := a.newEvent(ctx, EventInjectionRejected, "critical", "", details)

	a.logger.Error("SQL injection attempt rejected",
		zap.String("event_json", marshal(event)),
		zap.String("request_id", requestIDString(event.RequestID)),
		zap.String("table", details.Table),
		zap.String("column", details.Column),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogPoolCheck records a liveness check on a named pool. A nil checkErr
// means the pool answered. Successful checks are INFO; failed checks are WARN.
func (a *SecurityAuditor) LogPoolCheck(ctx context.Context, pool, kind string, checkErr error, clientIP string) {
	details := PoolCheckDetails{Pool: pool, Kind: kind, Alive: checkErr == nil}
	severity := "info"
	if checkErr != nil {
		severity = "warning"
		details.Error = logging.SanitizeError(checkErr)
	}
	event := a.newEvent(ctx, EventPoolCheck, severity, clientIP, details)

	fields := []zap.Field{
		zap.String("event_json", marshal(event)),
		zap.String("request_id", requestIDString(event.RequestID)),
		zap.String("pool", details.Pool),
		zap.Bool("alive", details.Alive),
		zap.String("client_ip", clientIP),
		zap.String("severity", severity),
	}
	if details.Alive {
		a.logger.Info("Pool checked", fields...)
		return
	}
	a.logger.Warn("Pool check failed", append(fields, zap.String("error", details.Error))...)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, typ SecurityEventType, severity, clientIP string, details any) SecurityEvent {
	return SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: typ,
		RequestID: RequestIDFromContext(ctx),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

// Known types only, so marshaling cannot fail.
func marshal(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}

func requestIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
