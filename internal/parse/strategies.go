package parse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ArrayFields are the object fields unwrapped by the wrapped-object strategy.
var ArrayFields = []string{"items", "articles", "results", "insights", "report", "data", "records"}

var (
	arrayStartPattern = regexp.MustCompile(`\[\s*\{`)
	fencePattern      = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")
	trailingComma     = regexp.MustCompile(`,\s*([\]}])`)
	titleKeyPattern   = regexp.MustCompile(`"title"\s*:`)
	bodyKeyPattern    = regexp.MustCompile(`"(summary|source)"\s*:`)
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// StripPreamble drops prose before the first array of objects and decodes
// the first JSON value found there. Trailing text after the array is ignored.
func StripPreamble(raw string) ([]Record, bool) {
	loc := arrayStartPattern.FindStringIndex(raw)
	if loc == nil {
		return nil, false
	}
	var v []any
	if err := json.NewDecoder(strings.NewReader(raw[loc[0]:])).Decode(&v); err != nil {
		return nil, false
	}
	return recordsFrom(v)
}

// FencedBlock parses the contents of the first fenced code block that holds
// an array, or an object wrapping one.
func FencedBlock(raw string) ([]Record, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		body := strings.TrimSpace(m[1])
		if recs, ok := decodeArray(body); ok {
			return recs, true
		}
		if recs, ok := unwrapObject(body); ok {
			return recs, true
		}
	}
	return nil, false
}

// WrappedObject finds an object holding one of ArrayFields and unwraps it.
func WrappedObject(raw string) ([]Record, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, false
	}
	if end := matchClose(raw, start); end > start {
		if recs, ok := unwrapObject(raw[start : end+1]); ok {
			return recs, true
		}
	}
	if end := strings.LastIndex(raw, "}"); end > start {
		return unwrapObject(raw[start : end+1])
	}
	return nil, false
}

// BracketLiteral parses the outermost [ ... ] span directly.
func BracketLiteral(raw string) ([]Record, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeArray(raw[start : end+1])
}

// Normalized cleans control characters, smart quotes and trailing commas,
// then retries the direct strategies.
func Normalized(raw string) ([]Record, bool) {
	clean := Normalize(raw)
	if recs, ok := BracketLiteral(clean); ok {
		return recs, true
	}
	return WrappedObject(clean)
}

// Fragments recovers individual record-shaped objects independently. An
// object qualifies when it has a top-level title and a summary or source.
func Fragments(raw string) ([]Record, bool) {
	text := Normalize(raw)
	var out []Record
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchClose(text, i)
		if end < 0 {
			continue
		}
		frag := text[i : end+1]
		if !titleKeyPattern.MatchString(frag) || !bodyKeyPattern.MatchString(frag) {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(frag), &m); err != nil {
			continue
		}
		rec := Record(m)
		if rec.String("title") == "" || (rec.String("summary") == "" && rec.String("source") == "") {
			// a wrapper; descend into it
			continue
		}
		out = append(out, rec)
		i = end
	}
	return out, len(out) > 0
}

// Normalize replaces control characters with spaces, straightens smart
// quotes and removes trailing commas before closing brackets.
func Normalize(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteRune(r)
	}
	s := quoteReplacer.Replace(sb.String())
	return trailingComma.ReplaceAllString(s, "$1")
}

func decodeArray(s string) ([]Record, bool) {
	var v []any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return recordsFrom(v)
}

func unwrapObject(s string) ([]Record, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	for _, f := range ArrayFields {
		if arr, ok := m[f].([]any); ok {
			if recs, ok := recordsFrom(arr); ok {
				return recs, true
			}
		}
	}
	return nil, false
}

func recordsFrom(v []any) ([]Record, bool) {
	var out []Record
	for _, e := range v {
		if m, ok := e.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out, len(out) > 0
}

// matchClose returns the index of the bracket closing the one at open,
// skipping brackets inside JSON strings, or -1.
func matchClose(s string, open int) int {
	openCh := s[open]
	var closeCh byte
	switch openCh {
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	default:
		return -1
	}
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
