package events

import (
	"fmt"
	"sort"
	"strings"
)

// maxFieldLen is the per-field truncation length used by SanitizeArgs.
const maxFieldLen = 100

// maxErrorLen is the truncation length used by SanitizeError.
const maxErrorLen = 200

// argsWhitelist maps a tool name to the ordered set of argument keys safe to
// surface to a client. A tool absent from this table is unknown to the
// sanitizer and redacted entirely.
var argsWhitelist = map[string][]string{
	"search_tender_corpus": {"query", "top_k"},
	"read_file":            {"path"},
	"get_file_content":     {"path"},
	"write_file":           {"path"},
	"edit_file":            {"path"},
	"ls":                   {"path"},
	"web_search":           {"query"},
	"delegate_to_subagent": {"description"},
}

// SanitizeArgs renders a short, single-line, whitelist-filtered summary of a
// tool call's arguments. An unknown tool returns "(redacted)"; a known tool
// with nothing to show (all whitelisted keys absent) returns "(no args)".
func SanitizeArgs(tool string, args map[string]any) string {
	keys, known := argsWhitelist[tool]
	if !known {
		return "(redacted)"
	}
	if len(keys) == 0 {
		return "(no args)"
	}

	var parts []string
	for _, k := range keys {
		v, present := args[k]
		if !present {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatArgValue(v)))
	}
	if len(parts) == 0 {
		return "(no args)"
	}
	return strings.Join(parts, " ")
}

func formatArgValue(v any) string {
	s, isString := v.(string)
	if !isString {
		return fmt.Sprintf("%v", v)
	}
	s = truncate(s, maxFieldLen)
	return "'" + s + "'"
}

// resultLabels gives a terse, tool-specific success label. A successful
// result from a tool absent here falls back to "Completed"; failure is
// decided by SanitizeResult's ok flag, for every tool alike.
var resultLabels = map[string]string{
	"search_tender_corpus": "Found results",
	"read_file":            "Read file",
	"get_file_content":     "Read file",
	"write_file":           "Updated file",
	"edit_file":            "Updated file",
	"ls":                   "Listed directory",
	"web_search":           "Found results",
	"delegate_to_subagent": "Delegation complete",
}

// SanitizeResult emits a terse outcome label for a tool result. ok
// indicates whether the raw result signaled success; when false, "Failed"
// is returned regardless of tool.
func SanitizeResult(tool string, ok bool, count int) string {
	if !ok {
		return "Failed"
	}
	label, known := resultLabels[tool]
	if !known {
		return "Completed"
	}
	if count > 0 {
		switch tool {
		case "search_tender_corpus", "web_search":
			return fmt.Sprintf("Found %d results", count)
		case "read_file", "get_file_content":
			return fmt.Sprintf("Read %d lines", count)
		}
	}
	return label
}

// SanitizeError strips directory prefixes, keeps only the first line, and
// caps the result at maxErrorLen characters.
func SanitizeError(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	if i := strings.LastIndex(msg, "/"); i >= 0 {
		msg = msg[i+1:]
	}
	return truncate(msg, maxErrorLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// KnownTools returns the sorted list of tools this sanitizer recognizes,
// useful for tests and for documentation endpoints.
func KnownTools() []string {
	out := make([]string, 0, len(argsWhitelist))
	for k := range argsWhitelist {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
