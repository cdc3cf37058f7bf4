package ingest

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/logparse"
	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/timestamp"
)

var textParser = timestamp.NewParser()

// Field names honored by the flat JSON parser, in priority order.
var (
	messageKeys   = []string{"msg", "message", "log", "body", "text"}
	levelKeys     = []string{"level", "severity", "lvl", "loglevel"}
	timestampKeys = []string{"time", "timestamp", "ts", "@timestamp", "datetime"}
)

// Attribute names checked when deriving entry routing fields.
var (
	taskAttributeKeys    = []string{"task", "task.name", "task_name", "workflow", "job", "service.name", "app"}
	attemptAttributeKeys = []string{"attempt", "retry", "try"}
	originAttributeKeys  = []string{"origin", "step", "container", "pod"}
)

// DecodeJSONEntries turns one JSON line into log entries. It handles
// OTEL log data model envelopes, the bare OTEL log-record shape, and
// flat single-object formats such as pino and winston.
func DecodeJSONEntries(line string) []*model.LogEntry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil
	}

	if entries, handled := decodeOTELEnvelope(raw, line); handled {
		return entries
	}
	return []*model.LogEntry{parseFlatLogEntry(raw, line)}
}

// DecodeJSONEntry is DecodeJSONEntries collapsed to a single entry.
// When an OTEL envelope holds several records, the first wins.
func DecodeJSONEntry(line string) *model.LogEntry {
	entries := DecodeJSONEntries(line)
	if len(entries) == 0 {
		return nil
	}
	return entries[0]
}

// decodeOTELEnvelope recognizes the OTEL envelope shapes. The second
// result is false when raw is not OTEL at all and the flat decoder
// should have a go at it.
func decodeOTELEnvelope(raw map[string]any, line string) ([]*model.LogEntry, bool) {
	if v, ok := raw["resourceLogs"]; ok {
		return decodeResourceLogs(v, line), true
	}
	if v, ok := raw["scopeLogs"]; ok {
		return decodeScopeLogs(v, resourceAttrs(raw["resource"]), line), true
	}
	if v, ok := raw["instrumentationLibraryLogs"]; ok {
		return decodeScopeLogs(v, resourceAttrs(raw["resource"]), line), true
	}
	if v, ok := raw["logRecords"]; ok {
		return decodeLogRecords(v, resourceAttrs(raw["resource"]), line), true
	}
	if looksLikeOTELRecord(raw) {
		if entry := decodeLogRecord(raw, nil, line); entry != nil {
			return []*model.LogEntry{entry}, true
		}
		return nil, true
	}
	return nil, false
}

func decodeResourceLogs(value any, line string) []*model.LogEntry {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var entries []*model.LogEntry
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		inherited := resourceAttrs(node["resource"])
		scopes := node["scopeLogs"]
		if scopes == nil {
			// Pre-1.0 exporters used the instrumentationLibrary naming.
			scopes = node["instrumentationLibraryLogs"]
		}
		entries = append(entries, decodeScopeLogs(scopes, inherited, line)...)
	}
	return entries
}

func resourceAttrs(value any) map[string]string {
	if resource, ok := value.(map[string]any); ok {
		return decodeAttrList(resource["attributes"])
	}
	return map[string]string{}
}

func decodeScopeLogs(value any, inherited map[string]string, line string) []*model.LogEntry {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var entries []*model.LogEntry
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}

		attrs := cloneAttrs(inherited)
		maps.Copy(attrs, decodeAttrList(node["attributes"]))

		if scope, ok := node["scope"].(map[string]any); ok {
			applyScopeIdentity(attrs, scope)
			maps.Copy(attrs, decodeAttrList(scope["attributes"]))
		}
		if scope, ok := node["instrumentationLibrary"].(map[string]any); ok {
			// The legacy spelling carries name and version but no attribute list.
			applyScopeIdentity(attrs, scope)
		}

		entries = append(entries, decodeLogRecords(node["logRecords"], attrs, line)...)
	}
	return entries
}

// applyScopeIdentity records the instrumentation scope under the
// otel.scope.* attribute keys.
func applyScopeIdentity(attrs map[string]string, scope map[string]any) {
	if name := StringField(scope, "name"); name != "" {
		attrs["otel.scope.name"] = name
	}
	if version := StringField(scope, "version"); version != "" {
		attrs["otel.scope.version"] = version
	}
}

func decodeLogRecords(value any, inherited map[string]string, line string) []*model.LogEntry {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	entries := make([]*model.LogEntry, 0, len(items))
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if entry := decodeLogRecord(node, inherited, line); entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

func decodeLogRecord(raw map[string]any, inherited map[string]string, line string) *model.LogEntry {
	attributes := cloneAttrs(inherited)
	maps.Copy(attributes, decodeAttrList(raw["attributes"]))
	copyTraceContext(attributes, raw)

	// RawLine holds the single record, not the whole envelope line.
	rawLine := line
	if encoded, err := json.Marshal(raw); err == nil {
		rawLine = string(encoded)
	}

	message := bodyText(raw["body"])
	if message == "" {
		message = rawLine
	}

	severity := StringField(raw, "severityText")
	if severity == "" {
		if n, ok := coerceInt64(raw["severityNumber"]); ok && n > 0 {
			severity = SeverityFromOTELNumber(int(n))
		}
	}
	if severity == "" {
		severity = model.DefaultLevel
	}

	ts := recordTime(raw)
	if ts.IsZero() {
		ts = time.Now()
	}

	return &model.LogEntry{
		Timestamp:  ts,
		Level:      logparse.NormalizeSeverity(severity),
		Message:    SanitizeMessage(message),
		Task:       ExtractTask(attributes),
		Attempt:    ExtractAttempt(attributes),
		Origin:     ExtractOrigin(attributes),
		Attributes: attributes,
		RawLine:    rawLine,
	}
}

// copyTraceContext lifts span correlation fields into flat string attributes.
func copyTraceContext(attrs map[string]string, raw map[string]any) {
	if id := StringField(raw, "traceId"); id != "" {
		attrs["trace.id"] = id
	}
	if id := StringField(raw, "spanId"); id != "" {
		attrs["span.id"] = id
	}
	if flags := asString(raw["flags"]); flags != "" {
		attrs["trace.flags"] = flags
	}
	if dropped := asString(raw["droppedAttributesCount"]); dropped != "" {
		attrs["otel.dropped_attributes_count"] = dropped
	}
}

// parseFlatLogEntry handles single-object JSON lines in the shape emitted by
// common structured loggers. Fields not consumed as message, level, or
// timestamp become attributes; a "_task" field routes the entry without
// landing in attributes.
func parseFlatLogEntry(raw map[string]any, line string) *model.LogEntry {
	consumed := map[string]bool{}

	message := ""
	for _, key := range messageKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			message = s
			consumed[key] = true
			break
		}
	}

	level := model.DefaultLevel
	for _, key := range levelKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s := flattenLevelValue(v); s != "" {
			level = s
			consumed[key] = true
			break
		}
	}

	ts := time.Now()
	for _, key := range timestampKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if parsed, found := textParser.ParseTimestamp(v); found {
			ts = parsed
			consumed[key] = true
			break
		}
	}

	task := ""
	attributes := map[string]string{}
	for key, value := range raw {
		if key == "_task" {
			task = asString(value)
			continue
		}
		if consumed[key] {
			continue
		}
		if s := asString(value); s != "" {
			attributes[key] = s
		}
	}

	if task == "" {
		task = ExtractTask(attributes)
	}
	if message == "" {
		message = line
	}

	return &model.LogEntry{
		Timestamp:  ts,
		Level:      logparse.NormalizeSeverity(level),
		Message:    SanitizeMessage(message),
		Task:       task,
		Attempt:    ExtractAttempt(attributes),
		Origin:     ExtractOrigin(attributes),
		Attributes: attributes,
		RawLine:    line,
	}
}

// FallbackEntry builds an entry for a line that is not JSON.
// A leading timestamp in the line is honored as the event time.
func FallbackEntry(line string) *model.LogEntry {
	ts := time.Now()
	if res := textParser.ParseFromText(line); res.Found {
		ts = res.Timestamp
	}

	message := SanitizeMessage(textParser.ExtractLogMessage(line))
	if message == "" {
		message = SanitizeMessage(line)
	}

	return &model.LogEntry{
		Timestamp:  ts,
		Level:      logparse.SeverityFromText(line),
		Message:    message,
		Task:       model.DefaultTask,
		Attributes: map[string]string{},
		RawLine:    line,
	}
}

// LevelFromJSON returns the level claimed by a flat JSON object.
// String levels are returned as-is; numeric levels are mapped through the
// pino convention. Objects without a level field report INFO.
func LevelFromJSON(raw map[string]any) string {
	for _, key := range levelKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s := flattenLevelValue(v); s != "" {
			return s
		}
	}
	return model.DefaultLevel
}

func flattenLevelValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return logparse.SeverityFromPinoLevel(int(v))
	case int:
		return logparse.SeverityFromPinoLevel(v)
	}
	return ""
}

// TimestampFromJSON returns the event time claimed by a flat JSON
// object, or the zero time when no timestamp field parses.
func TimestampFromJSON(raw map[string]any) time.Time {
	for _, key := range timestampKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if ts, found := textParser.ParseTimestamp(v); found {
			return ts
		}
	}
	return time.Time{}
}

func decodeAttrList(value any) map[string]string {
	out := map[string]string{}
	items, ok := value.([]any)
	if !ok {
		return out
	}

	for _, item := range items {
		kv, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := StringField(kv, "key")
		val := anyValueText(kv["value"])
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

func bodyText(value any) string {
	switch body := value.(type) {
	case string:
		return body
	case map[string]any:
		return anyValueText(body)
	}
	return asString(value)
}

// otelScalarKeys are the scalar members of the OTEL AnyValue union.
var otelScalarKeys = []string{"stringValue", "boolValue", "intValue", "doubleValue", "bytesValue"}

func anyValueText(value any) string {
	anyValue, ok := value.(map[string]any)
	if !ok {
		return asString(value)
	}

	for _, key := range otelScalarKeys {
		if v, ok := anyValue[key]; ok {
			return asString(v)
		}
	}

	if wrapper, ok := anyValue["arrayValue"].(map[string]any); ok {
		if values, ok := wrapper["values"].([]any); ok {
			return joinAnyValues(values)
		}
	}
	if wrapper, ok := anyValue["kvlistValue"].(map[string]any); ok {
		return asString(wrapper["values"])
	}
	return asString(anyValue)
}

func joinAnyValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if part := anyValueText(v); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ",")
}

func recordTime(raw map[string]any) time.Time {
	if ts, ok := unixNanoTime(raw["timeUnixNano"]); ok {
		return ts
	}
	if ts, ok := unixNanoTime(raw["observedTimeUnixNano"]); ok {
		return ts
	}
	return time.Time{}
}

func unixNanoTime(value any) (time.Time, bool) {
	n, ok := coerceInt64(value)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// SeverityFromOTELNumber maps an OTEL severity number to a level name.
// The 1..24 range splits into six bands of four, TRACE through FATAL;
// numbers outside it map to "".
func SeverityFromOTELNumber(number int) string {
	if number < 1 || number > 24 {
		return ""
	}
	return logparse.KnownLevels[(number-1)/4]
}

// otelRecordMarkers are fields only the OTEL log record shape carries.
var otelRecordMarkers = []string{
	"timeUnixNano",
	"observedTimeUnixNano",
	"severityNumber",
	"severityText",
	"traceId",
	"spanId",
	"flags",
	"droppedAttributesCount",
}

func looksLikeOTELRecord(raw map[string]any) bool {
	for _, key := range otelRecordMarkers {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	_, hasBody := raw["body"]
	_, hasAttrs := raw["attributes"]
	return hasBody && hasAttrs
}

// ExtractTask returns the task name recorded in entry attributes.
func ExtractTask(attributes map[string]string) string {
	for _, key := range taskAttributeKeys {
		if v := attributes[key]; v != "" {
			return v
		}
	}
	return model.DefaultTask
}

// ExtractAttempt returns the retry attempt recorded in entry attributes.
func ExtractAttempt(attributes map[string]string) int {
	for _, key := range attemptAttributeKeys {
		v := attributes[key]
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

// ExtractOrigin returns the emitting step or container recorded in entry attributes.
func ExtractOrigin(attributes map[string]string) string {
	for _, key := range originAttributeKeys {
		if v := attributes[key]; v != "" {
			return v
		}
	}
	return ""
}

// cloneAttrs copies attributes into a fresh map. The result is never
// nil; callers write into it.
func cloneAttrs(attributes map[string]string) map[string]string {
	out := make(map[string]string, len(attributes))
	maps.Copy(out, attributes)
	return out
}

// coerceInt64 converts the numeric shapes found in decoded JSON, including
// decimal strings, to int64.
func coerceInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	if b, err := json.Marshal(value); err == nil {
		return string(b)
	}
	return ""
}

var messageFlattener = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// SanitizeMessage flattens tabs and line breaks so a message renders as a
// single timeline row.
func SanitizeMessage(message string) string {
	return messageFlattener.Replace(message)
}

// StringField returns the first of keys whose value stringifies to
// something non-empty.
func StringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}
