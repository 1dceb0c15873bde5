package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AlertCore forwards high-severity log entries to a webhook on top of
// the wrapped core. Delivery is fire-and-forget; a failed post must
// never block or fail the logging call itself.
type AlertCore struct {
	webhookURL string
	core       zapcore.Core
	minLevel   zapcore.Level
}

func NewAlertCore(webhookURL string, core zapcore.Core, minLevel zapcore.Level) zapcore.Core {
	return &AlertCore{
		webhookURL: webhookURL,
		core:       core,
		minLevel:   minLevel,
	}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		webhookURL: a.webhookURL,
		core:       a.core.With(fields),
		minLevel:   a.minLevel,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checked.AddCore(entry, a)
	}
	return checked
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if err := a.core.Write(entry, fields); err != nil {
		return err
	}

	if entry.Level >= a.minLevel {
		go a.sendAlert(entry)
	}
	return nil
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func (a *AlertCore) sendAlert(entry zapcore.Entry) {
	payload, err := json.Marshal(map[string]string{
		"level":   entry.Level.String(),
		"message": entry.Message,
		"caller":  entry.Caller.TrimmedPath(),
		"ts":      entry.Time.Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(a.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// WithAlertWebhook returns a logger that also posts error-level entries
// to the given webhook.
func (l *Logger) WithAlertWebhook(webhookURL string) *Logger {
	wrapped := l.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return NewAlertCore(webhookURL, core, zapcore.ErrorLevel)
	}))
	return &Logger{wrapped}
}
