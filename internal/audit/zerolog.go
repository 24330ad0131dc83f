package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink forwards audit events to a zerolog logger. Failed operations
// log at warn level, everything else at info.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	var evt *zerolog.Event
	if event.Success {
		evt = s.logger.Info()
	} else {
		evt = s.logger.Warn()
	}

	evt = evt.
		Time("ts", event.Timestamp).
		Str("event", event.EventType).
		Bool("success", event.Success)

	if event.Identifier != "" {
		evt = evt.Str("identifier", event.Identifier)
	}
	if event.SubjectID != "" {
		evt = evt.Str("subject_id", event.SubjectID)
	}
	if event.Channel != "" {
		evt = evt.Str("channel", event.Channel)
	}
	if event.IP != "" {
		evt = evt.Str("ip", event.IP)
	}
	if event.Error != "" {
		evt = evt.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		evt = evt.Str(k, v)
	}

	evt.Msg("audit")
}
