package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the acting user under the key "user_id".
func UserID(id any) slog.Attr {
	return idAttr("user_id", id)
}

// AccountID records the client account under the key "account_id".
func AccountID(id any) slog.Attr {
	return idAttr("account_id", id)
}

// GalleryID records a gallery under the key "gallery_id".
func GalleryID(id any) slog.Attr {
	return idAttr("gallery_id", id)
}

// PhotographerID records the referring photographer under the key "photographer_id".
func PhotographerID(id any) slog.Attr {
	return idAttr("photographer_id", id)
}

// CommissionID records a commission record under the key "commission_id".
func CommissionID(id any) slog.Attr {
	return idAttr("commission_id", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id any) slog.Attr {
	return idAttr("request_id", id)
}

// EventID records the billing provider event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Provider records the billing provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Status records a lifecycle status under the key "status".
func Status(status any) slog.Attr {
	return slog.Any("status", status)
}

// Transition records a from/to status change under the key "transition".
func Transition(from, to any) slog.Attr {
	return Group("transition", slog.Any("from", from), slog.Any("to", to))
}

// AmountCents records a money amount in minor units under the key "amount_cents".
func AmountCents(v int64) slog.Attr {
	return slog.Int64("amount_cents", v)
}

// Count records a tally under the given key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func idAttr(key string, id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	if s, ok := id.(interface{ String() string }); ok {
		return slog.String(key, s.String())
	}
	return slog.Any(key, id)
}
