// Package notification delivers accepted-setup alerts to external
// channels (Telegram, generic webhooks). Delivery is best effort; a dead
// webhook never fails a scan.
package notification

import (
	"context"
	"fmt"
	"log"

	"swing-scannerv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// DecisionAlert renders an accepted decision as an alert.
func DecisionAlert(d model.Decision) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s %s", d.Signal, d.Instrument, d.Side),
		Message: fmt.Sprintf(
			"entry %.2f, stop %.2f, target %.2f, %d shares, risk %.2f (ADX %.1f, ATR %.2f)",
			d.EntryPrice, d.StopLoss, d.TargetPrice, d.PositionSize, d.RiskAmount, d.ADX, d.ATR),
	}
}

// LogNotifier logs alerts instead of delivering them. Default backend
// when no channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans one alert out to several backends, returning the first error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
