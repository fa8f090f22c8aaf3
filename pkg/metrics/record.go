package metrics

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is an immutable snapshot of one completed operation execution.
// Start and End carry monotonic clock readings; Timestamp is the
// wall-clock creation time in RFC 3339 UTC form.
type Record struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	Method       string    `json:"method,omitempty"`
	ClientInfo   string    `json:"client_info,omitempty"`
	Start        time.Time `json:"-"`
	End          time.Time `json:"-"`
	DurationMS   float64   `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorType    string    `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    string    `json:"timestamp"`
}

// NewRecord builds a Record for an execution that ran from start to end.
// A nil err marks the execution successful; otherwise the error's type
// and message are captured for observability. Record IDs are ULIDs, so
// lexicographic ID order matches creation order.
func NewRecord(operation, method, clientInfo string, start, end time.Time, err error) Record {
	rec := Record{
		ID:         ulid.Make().String(),
		Operation:  operation,
		Method:     method,
		ClientInfo: clientInfo,
		Start:      start,
		End:        end,
		DurationMS: durationMS(start, end),
		Success:    err == nil,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		rec.ErrorType = ErrorTypeName(err)
		rec.ErrorMessage = err.Error()
	}
	return rec
}

func durationMS(start, end time.Time) float64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
