package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// validRecord returns a syntactically valid raw record. Tests override
// individual fields to probe one validator at a time.
func validRecord(overrides map[string]string) map[string]string {
	record := map[string]string{
		"host":         "203.0.113.7",
		"user":         "-",
		"time":         "2024-05-01T12:30:00Z",
		"method":       "GET",
		"path":         "/wiki/Main_Page",
		"query":        "action=view",
		"status":       "200",
		"responseSize": "1532",
		"processTime":  "0.042",
		"referer":      "https://example.org/",
		"userAgent":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
		"country":      "us",
	}
	for k, v := range overrides {
		record[k] = v
	}
	return record
}

func validLine(t *testing.T, overrides map[string]string) string {
	t.Helper()
	data, err := json.Marshal(validRecord(overrides))
	if err != nil {
		t.Fatalf("marshal test record: %v", err)
	}
	return string(data)
}

func TestValidate_RoundTrip(t *testing.T) {
	entry, err := Validate(validLine(t, nil))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if entry.Host != "203.0.113.7" {
		t.Errorf("Host = %q, want %q", entry.Host, "203.0.113.7")
	}
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	if !entry.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", entry.Time, want)
	}
	if !entry.Method.Valid || entry.Method.String != "GET" {
		t.Errorf("Method = %+v, want GET", entry.Method)
	}
	if !entry.Path.Valid || entry.Path.String != "/wiki/Main_Page" {
		t.Errorf("Path = %+v, want /wiki/Main_Page", entry.Path)
	}
	if !entry.Query.Valid || entry.Query.String != "action=view" {
		t.Errorf("Query = %+v, want action=view", entry.Query)
	}
	if entry.Status != 200 {
		t.Errorf("Status = %d, want 200", entry.Status)
	}
	if entry.ResponseSize != 1532 {
		t.Errorf("ResponseSize = %v, want 1532", entry.ResponseSize)
	}
	if entry.ProcessTime != 0.042 {
		t.Errorf("ProcessTime = %v, want 0.042", entry.ProcessTime)
	}
	if entry.Referer != "https://example.org/" {
		t.Errorf("Referer = %q, want %q", entry.Referer, "https://example.org/")
	}
	if entry.User.Valid {
		t.Errorf("User = %+v, want absent", entry.User)
	}
	if !entry.Country.Valid || entry.Country.String != "US" {
		t.Errorf("Country = %+v, want US", entry.Country)
	}
}

func TestValidate_Sentinels(t *testing.T) {
	entry, err := Validate(validLine(t, map[string]string{
		"method":  "-",
		"path":    "-",
		"query":   "",
		"user":    "-",
		"country": "-",
	}))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if entry.Method.Valid {
		t.Errorf("Method = %+v, want absent for sentinel", entry.Method)
	}
	if entry.Path.Valid {
		t.Errorf("Path = %+v, want absent for sentinel", entry.Path)
	}
	if entry.Query.Valid {
		t.Errorf("Query = %+v, want absent for empty", entry.Query)
	}
	if entry.User.Valid {
		t.Errorf("User = %+v, want absent for sentinel", entry.User)
	}
	if entry.Country.Valid {
		t.Errorf("Country = %+v, want absent for sentinel", entry.Country)
	}
}

func TestValidate_EmptyUserStaysPopulated(t *testing.T) {
	// Only "-" is the no-value sentinel; an empty string is a value.
	entry, err := Validate(validLine(t, map[string]string{"user": ""}))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !entry.User.Valid || entry.User.String != "" {
		t.Errorf("User = %+v, want present empty string", entry.User)
	}
}

func TestValidate_FieldFailures(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantField string
		wantValue string
	}{
		{"bad IP", map[string]string{"host": "not-an-ip"}, "host", "not-an-ip"},
		{"bad status", map[string]string{"status": "999"}, "status", "999"},
		{"non-numeric status", map[string]string{"status": "OK"}, "status", "OK"},
		{"bad method", map[string]string{"method": "FETCH"}, "method", "FETCH"},
		{"lowercase method", map[string]string{"method": "get"}, "method", "get"},
		{"bad time", map[string]string{"time": "yesterday"}, "time", "yesterday"},
		{"NaN response size", map[string]string{"responseSize": "NaN"}, "responseSize", "NaN"},
		{"bad process time", map[string]string{"processTime": "fast"}, "processTime", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(validLine(t, tt.overrides))
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantValue) {
				t.Errorf("error %q should name the offending value %q", err.Error(), tt.wantValue)
			}
		})
	}
}

func TestValidate_LenientNumbers(t *testing.T) {
	// Any syntactically valid non-NaN number passes, negatives included.
	entry, err := Validate(validLine(t, map[string]string{
		"responseSize": "-12",
		"processTime":  "1e3",
	}))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if entry.ResponseSize != -12 {
		t.Errorf("ResponseSize = %v, want -12", entry.ResponseSize)
	}
	if entry.ProcessTime != 1000 {
		t.Errorf("ProcessTime = %v, want 1000", entry.ProcessTime)
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	_, err := Validate(`{"host": "203.0.113.7",`)
	if err == nil {
		t.Fatal("Validate() expected error for malformed JSON")
	}
}

func TestValidate_NonStringField(t *testing.T) {
	line := strings.Replace(validLine(t, nil), `"status":"200"`, `"status":200`, 1)
	_, err := Validate(line)
	if err == nil {
		t.Fatal("Validate() expected error for non-string field")
	}
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want ValidationError", err)
	}
	if verr.Field != "status" {
		t.Errorf("Field = %q, want status", verr.Field)
	}
}

func TestValidate_HexEscapeFix(t *testing.T) {
	// The upstream writer emits \xHH byte escapes that break strict JSON
	// decoding; they must be rewritten to %HH and URI-decoded with the
	// rest of the path.
	line := validLine(t, map[string]string{"path": "/wiki/placeholder"})
	line = strings.Replace(line, "/wiki/placeholder", `/wiki/caf\xC3\xA9`, 1)

	entry, err := Validate(line)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !entry.Path.Valid || entry.Path.String != "/wiki/café" {
		t.Errorf("Path = %+v, want /wiki/café", entry.Path)
	}
}

func TestValidate_PathDecodeAndTruncate(t *testing.T) {
	longPath := "/" + strings.Repeat("a", 300)
	entry, err := Validate(validLine(t, map[string]string{
		"path":  longPath,
		"query": "q=%C3%A9",
		"user":  strings.Repeat("u", 300),
	}))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := len(entry.Path.String); got != MaxFieldLen {
		t.Errorf("Path length = %d, want %d", got, MaxFieldLen)
	}
	if entry.Query.String != "q=é" {
		t.Errorf("Query = %q, want q=é", entry.Query.String)
	}
	if got := len(entry.User.String); got != MaxFieldLen {
		t.Errorf("User length = %d, want %d", got, MaxFieldLen)
	}
}

func TestValidate_IPv6Host(t *testing.T) {
	entry, err := Validate(validLine(t, map[string]string{"host": "2001:db8::1"}))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if entry.Host != "2001:db8::1" {
		t.Errorf("Host = %q, want 2001:db8::1", entry.Host)
	}
}

func TestValidate_ProxyStatusCodes(t *testing.T) {
	for _, status := range []string{"444", "499", "522", "530"} {
		if _, err := Validate(validLine(t, map[string]string{"status": status})); err != nil {
			t.Errorf("Validate() with proxy status %s: %v", status, err)
		}
	}
}

func TestValidate_MissingKeyFailsItsCheck(t *testing.T) {
	record := validRecord(nil)
	delete(record, "host")
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = Validate(string(data))
	if err == nil {
		t.Fatal("Validate() expected error for missing host")
	}
	verr, ok := err.(ValidationError)
	if !ok || verr.Field != "host" {
		t.Errorf("error = %v, want ValidationError on host", err)
	}
}
