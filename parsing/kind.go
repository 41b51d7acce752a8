package parsing

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// Kind identifies one of the structural parser variants.
type Kind int

const (
	// KindPropertiesOnly extracts only metadata-derived fields. It is
	// both the legitimate "no recognized grammar" outcome and the
	// universal fallback when structural parsing fails.
	KindPropertiesOnly Kind = iota
	// KindXML parses CIM XML market documents.
	KindXML
	// KindJSON parses CIM JSON market documents.
	KindJSON
	// KindEbix parses Ebix XML market documents.
	KindEbix
	// KindErrorXML parses XML error envelopes.
	KindErrorXML
	// KindErrorJSON parses JSON error envelopes.
	KindErrorJSON
)

func (k Kind) String() string {
	switch k {
	case KindXML:
		return "xml"
	case KindJSON:
		return "json"
	case KindEbix:
		return "ebix"
	case KindErrorXML:
		return "errorxml"
	case KindErrorJSON:
		return "errorjson"
	default:
		return "properties"
	}
}

// HTTP status codes that mark a logged response body as an error body.
var errorStatusCodes = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusMethodNotAllowed:    true,
	http.StatusRequestTimeout:      true,
	http.StatusConflict:            true,
	http.StatusPreconditionFailed:  true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
}

// statusNames maps lower-cased reason phrases without spaces to codes,
// e.g. "internalservererror" -> 500. The upstream logger writes either
// the numeric code or the reason-phrase name.
var statusNames = func() map[string]int {
	names := make(map[string]int)
	for code := 100; code < 600; code++ {
		text := http.StatusText(code)
		if text == "" {
			continue
		}
		names[strings.ToLower(strings.ReplaceAll(text, " ", ""))] = code
	}
	return names
}()

// parseStatusCode parses HTTP status text in either numeric ("500") or
// reason-phrase ("InternalServerError") form.
func parseStatusCode(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if code, err := strconv.Atoi(text); err == nil {
		return code, code >= 100 && code < 600
	}
	code, ok := statusNames[strings.ToLower(text)]
	return code, ok
}

// Select classifies a logged blob and picks the parser kind. It is
// pure, deterministic and total: the worst case is KindPropertiesOnly.
//
// Order matters: error-status classification wins over everything, so a
// failed request logged with an XML content type is still treated as an
// error body.
func Select(contentType, httpStatusText, content string) Kind {
	if code, ok := parseStatusCode(httpStatusText); ok && errorStatusCodes[code] {
		switch {
		case containsFold(contentType, "xml") && strings.Contains(content, "<Error>"):
			return KindErrorXML
		case containsFold(contentType, "json"),
			containsFold(content, "error") && containsFold(content, "code"):
			return KindErrorJSON
		default:
			return KindPropertiesOnly
		}
	}

	if containsFold(contentType, "ebix") {
		return KindEbix
	}

	trimmed := strings.TrimSpace(content)
	if (containsFold(contentType, "xml") && content != "") ||
		strings.HasPrefix(trimmed, "<?xml version") ||
		strings.HasPrefix(trimmed, "<cim:") {
		return KindXML
	}

	if containsFold(contentType, "json") || strings.HasPrefix(trimmed, "{") {
		return KindJSON
	}

	return KindPropertiesOnly
}

// ClassifyRecord classifies a downloaded raw record.
func ClassifyRecord(raw *core.RawRecord) Kind {
	return Select(raw.Meta(core.MetaContentType), raw.Meta(core.MetaStatusCode), string(raw.Content))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
