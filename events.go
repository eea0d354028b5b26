package flagvault

import (
	"log/slog"
	"time"

	"github.com/flagvault/flagvault-go/flagengine"
	"github.com/flagvault/flagvault-go/flagengine/flags"
)

type EventType string

const (
	EventFlagCreated   EventType = "flag_created"
	EventFlagUpdated   EventType = "flag_updated"
	EventFlagDeleted   EventType = "flag_deleted"
	EventFlagEvaluated EventType = "flag_evaluated"
)

// Event describes a state transition in the flag store or an evaluation.
type Event struct {
	Type   EventType                    `json:"type"`
	FlagID string                       `json:"flag_id"`
	Flag   *flags.FeatureFlag           `json:"flag,omitempty"`
	Result *flagengine.EvaluationResult `json:"result,omitempty"`
	At     time.Time                    `json:"at"`
}

// Observer receives store and evaluation events. Implementations must be safe
// for concurrent use; Notify is called synchronously on the operation path,
// so slow observers should hand off to their own goroutine.
type Observer interface {
	Notify(event Event)
}

// LogObserver writes each event to a slog logger.
type LogObserver struct {
	log *slog.Logger
}

func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) Notify(event Event) {
	attrs := []any{
		slog.String("flag_id", event.FlagID),
		slog.Time("at", event.At),
	}
	if event.Flag != nil {
		attrs = append(attrs, slog.String("flag_name", event.Flag.Name))
	}
	if event.Result != nil {
		attrs = append(attrs,
			slog.Bool("enabled", event.Result.Enabled),
			slog.Bool("fallback", event.Result.FallbackToDefault),
			slog.Duration("evaluation_time", event.Result.EvaluationTime),
		)
	}
	o.log.Info(string(event.Type), attrs...)
}
