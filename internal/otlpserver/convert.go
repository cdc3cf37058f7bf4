package otlpserver

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tasklight/tasklight/internal/ingest"
	"github.com/tasklight/tasklight/internal/logparse"
	"github.com/tasklight/tasklight/internal/model"
)

// EntriesFromRequest converts an OTLP export request into canonical log
// entries. Resource and scope attributes are inherited by every record
// under them, mirroring the JSON envelope path in the ingest package.
func EntriesFromRequest(req *collogspb.ExportLogsServiceRequest) []*model.LogEntry {
	var entries []*model.LogEntry
	for _, rl := range req.GetResourceLogs() {
		resourceAttrs := attributesToMap(rl.GetResource().GetAttributes())
		for _, sl := range rl.GetScopeLogs() {
			scopeAttrs := cloneMap(resourceAttrs)
			if scope := sl.GetScope(); scope != nil {
				if scope.GetName() != "" {
					scopeAttrs["otel.scope.name"] = scope.GetName()
				}
				if scope.GetVersion() != "" {
					scopeAttrs["otel.scope.version"] = scope.GetVersion()
				}
				mergeMap(scopeAttrs, attributesToMap(scope.GetAttributes()))
			}
			for _, lr := range sl.GetLogRecords() {
				entries = append(entries, entryFromRecord(lr, scopeAttrs))
			}
		}
	}
	return entries
}

func entryFromRecord(lr *logspb.LogRecord, inherited map[string]string) *model.LogEntry {
	attrs := cloneMap(inherited)
	mergeMap(attrs, attributesToMap(lr.GetAttributes()))

	if id := lr.GetTraceId(); len(id) > 0 {
		attrs["trace.id"] = hex.EncodeToString(id)
	}
	if id := lr.GetSpanId(); len(id) > 0 {
		attrs["span.id"] = hex.EncodeToString(id)
	}

	ts := time.Now()
	if n := lr.GetTimeUnixNano(); n > 0 {
		ts = time.Unix(0, int64(n))
	} else if n := lr.GetObservedTimeUnixNano(); n > 0 {
		ts = time.Unix(0, int64(n))
	}

	severity := lr.GetSeverityText()
	if severity == "" {
		severity = ingest.SeverityFromOTELNumber(int(lr.GetSeverityNumber()))
	}
	if severity == "" {
		severity = model.DefaultLevel
	}

	message := anyValueString(lr.GetBody())
	rawLine := message
	if encoded, err := protojson.Marshal(lr); err == nil {
		rawLine = string(encoded)
	}
	if message == "" {
		message = rawLine
	}

	return &model.LogEntry{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		Level:      logparse.NormalizeSeverity(severity),
		Message:    ingest.SanitizeMessage(message),
		Task:       ingest.ExtractTask(attrs),
		Attempt:    ingest.ExtractAttempt(attrs),
		Origin:     ingest.ExtractOrigin(attrs),
		Attributes: attrs,
		RawLine:    rawLine,
		Source:     SourceName,
	}
}

func attributesToMap(kvs []*commonpb.KeyValue) map[string]string {
	out := map[string]string{}
	for _, kv := range kvs {
		if kv.GetKey() == "" {
			continue
		}
		if v := anyValueString(kv.GetValue()); v != "" {
			out[kv.GetKey()] = v
		}
	}
	return out
}

func anyValueString(v *commonpb.AnyValue) string {
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return strconv.FormatInt(val.IntValue, 10)
	case *commonpb.AnyValue_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'g', -1, 64)
	case *commonpb.AnyValue_BytesValue:
		return string(val.BytesValue)
	case *commonpb.AnyValue_ArrayValue:
		parts := make([]string, 0, len(val.ArrayValue.GetValues()))
		for _, item := range val.ArrayValue.GetValues() {
			if s := anyValueString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case *commonpb.AnyValue_KvlistValue:
		if encoded, err := protojson.Marshal(val.KvlistValue); err == nil {
			return string(encoded)
		}
		return ""
	default:
		return ""
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMap(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
