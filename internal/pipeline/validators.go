package pipeline

// validators.go implements the ordered validator chain for one raw line.
//
// Each validator is a pure function over the builder state: it either
// normalizes one field into the entry under construction or fails with a
// ValidationError naming the field and the offending value. The chain
// short-circuits at the first failure, so later validators can assume
// everything before them succeeded (e.g. the method check can assume the
// line decoded to a flat string map).

import (
	"encoding/json"
	"math"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// noValue is the upstream log writer's sentinel for "no value".
const noValue = "-"

// requiredKeys are the fields every raw record must carry. Missing keys
// decode to the empty string and fail their field checks naturally.
var requiredKeys = []string{
	"host", "user", "time", "method", "path", "query",
	"status", "responseSize", "processTime", "referer", "userAgent", "country",
}

// validMethods is the HTTP method whitelist.
var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

// validStatusCodes holds the accepted HTTP status codes: the registered
// RFC codes plus the nginx (444, 494-499) and Cloudflare (520-527, 530)
// proxy codes that show up in real access logs.
var validStatusCodes = buildStatusSet(
	100, 101, 102, 103,
	200, 201, 202, 203, 204, 205, 206, 207, 208, 226,
	300, 301, 302, 303, 304, 305, 306, 307, 308,
	400, 401, 402, 403, 404, 405, 406, 407, 408, 409, 410, 411, 412, 413,
	414, 415, 416, 417, 418, 421, 422, 423, 424, 425, 426, 428, 429, 431, 451,
	500, 501, 502, 503, 504, 505, 506, 507, 508, 510, 511,
	444, 494, 495, 496, 497, 498, 499,
	520, 521, 522, 523, 524, 525, 526, 527, 530,
)

func buildStatusSet(codes ...int) map[int]bool {
	set := make(map[int]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// timeLayouts are tried in order when parsing the time field.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/Jan/2006:15:04:05 -0700",
}

// hexEscape matches the literal \xHH byte escapes the upstream log writer
// emits. Raw JSON decoding would reject them, so they are rewritten to
// URI-style %HH escapes before decoding; the path/query validators then
// decode them together with any genuine percent escapes.
var hexEscape = regexp.MustCompile(`\\x([0-9A-Fa-f]{2})`)

// builder carries the normalization state through the chain.
type builder struct {
	line  string
	raw   map[string]string
	entry Entry
}

// validator advances the builder one step or fails the record.
type validator func(*builder) error

// chain is the fixed validation order. Order matters: every step assumes
// the steps before it succeeded.
var chain = []validator{
	fixHexEscapes,
	decodeRecord,
	checkHost,
	checkTime,
	checkMethod,
	checkPath,
	checkQuery,
	checkStatus,
	checkResponseSize,
	checkProcessTime,
	trimReferer,
	trimUser,
	normalizeCountry,
	classifyUserAgent,
}

// Validate runs the full validator chain over one raw line, returning the
// normalized entry or the first validation failure. It never touches I/O.
func Validate(line string) (Entry, error) {
	b := &builder{line: line}
	for _, v := range chain {
		if err := v(b); err != nil {
			return Entry{}, err
		}
	}
	return b.entry, nil
}

func fixHexEscapes(b *builder) error {
	b.line = hexEscape.ReplaceAllString(b.line, "%$1")
	return nil
}

func decodeRecord(b *builder) error {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(b.line), &decoded); err != nil {
		return ValidationError{Field: "record", Message: "malformed JSON record"}
	}

	b.raw = make(map[string]string, len(requiredKeys))
	for key, val := range decoded {
		s, ok := val.(string)
		if !ok {
			return ValidationError{Field: key, Message: "field " + key + " is not a string"}
		}
		b.raw[key] = s
	}
	// Missing keys read back as "" and fail their own field checks.
	return nil
}

func checkHost(b *builder) error {
	host := b.raw["host"]
	if net.ParseIP(host) == nil {
		return ValidationError{Field: "host", Value: host, Message: "invalid IP address"}
	}
	b.entry.Host = host
	return nil
}

func checkTime(b *builder) error {
	raw := b.raw["time"]
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			b.entry.Time = t
			return nil
		}
	}
	return ValidationError{Field: "time", Value: raw, Message: "invalid timestamp"}
}

func checkMethod(b *builder) error {
	method := b.raw["method"]
	if method == noValue {
		b.entry.Method = absentText()
		return nil
	}
	if !validMethods[method] {
		return ValidationError{Field: "method", Value: method, Message: "invalid HTTP method"}
	}
	b.entry.Method = presentText(method)
	return nil
}

func checkPath(b *builder) error {
	raw := b.raw["path"]
	if raw == noValue {
		b.entry.Path = absentText()
		return nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return ValidationError{Field: "path", Value: raw, Message: "invalid URI encoding in path"}
	}
	b.entry.Path = presentText(truncate(decoded, MaxFieldLen))
	return nil
}

func checkQuery(b *builder) error {
	raw := b.raw["query"]
	if raw == "" {
		b.entry.Query = absentText()
		return nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return ValidationError{Field: "query", Value: raw, Message: "invalid URI encoding in query"}
	}
	b.entry.Query = presentText(truncate(decoded, MaxFieldLen))
	return nil
}

func checkStatus(b *builder) error {
	raw := b.raw["status"]
	status, err := strconv.Atoi(raw)
	if err != nil || !validStatusCodes[status] {
		return ValidationError{Field: "status", Value: raw, Message: "invalid HTTP status"}
	}
	b.entry.Status = int32(status)
	return nil
}

func checkResponseSize(b *builder) error {
	size, err := parseNumber(b.raw["responseSize"])
	if err != nil {
		return ValidationError{Field: "responseSize", Value: b.raw["responseSize"], Message: "invalid response size"}
	}
	b.entry.ResponseSize = size
	return nil
}

func checkProcessTime(b *builder) error {
	pt, err := parseNumber(b.raw["processTime"])
	if err != nil {
		return ValidationError{Field: "processTime", Value: b.raw["processTime"], Message: "invalid process time"}
	}
	b.entry.ProcessTime = pt
	return nil
}

// parseNumber accepts any syntactically valid finite number. Negative
// values pass on purpose; the upstream writer is trusted for range.
func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func trimReferer(b *builder) error {
	b.entry.Referer = truncate(b.raw["referer"], MaxFieldLen)
	return nil
}

func trimUser(b *builder) error {
	user := b.raw["user"]
	if user == noValue {
		b.entry.User = absentText()
		return nil
	}
	b.entry.User = presentText(truncate(user, MaxFieldLen))
	return nil
}

func normalizeCountry(b *builder) error {
	country := b.raw["country"]
	if country == noValue {
		b.entry.Country = absentText()
		return nil
	}
	b.entry.Country = presentText(truncate(strings.ToUpper(country), MaxCountryLen))
	return nil
}
