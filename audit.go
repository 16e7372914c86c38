package goContacts

import (
	"io"

	"github.com/MrEthical07/goContacts/internal/audit"
)

// AuditEvent is one identity event delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's background dispatcher.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LoggerSink     = audit.LoggerSink
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewLoggerSink(log Logger) *LoggerSink { return audit.NewLoggerSink(log) }
