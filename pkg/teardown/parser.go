// Package teardown turns the free-text reply of a multimodal model into a
// structured video teardown report.
//
// The model is asked to answer with a META comment holding a JSON object, a
// SUMMARY comment and an HTML fragment. It does not always comply, so the
// metadata is recovered through a cascade of progressively looser
// strategies. Parsing never fails: whatever cannot be recovered is reported
// as absent and the raw text is always kept as the display body.
package teardown

import (
	"regexp"
	"strings"
)

// Strategy names the extraction step that produced the metadata.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyMetaComment Strategy = "meta_comment"
	StrategyFencedJSON  Strategy = "fenced_json"
	StrategyBraceScan   Strategy = "brace_scan"
)

// DefaultScanWindow bounds the brace scan, in characters from the first
// opening brace.
const DefaultScanWindow = 2000

var (
	metaCommentRe    = regexp.MustCompile(`<!--\s*META:\s*([\s\S]*?)\s*-->`)
	summaryCommentRe = regexp.MustCompile(`<!--\s*SUMMARY:\s*([\s\S]*?)\s*-->`)
	fencedJSONRe     = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
)

// Result is the structured form of one model reply. Body, Metadata and
// Summary are always derived from the same raw text.
type Result struct {
	// Body is the display-ready HTML fragment.
	Body string
	// Metadata is nil when no strategy recovered it.
	Metadata *Metadata
	// Summary is nil when the SUMMARY marker is missing or empty.
	Summary *string
	// MetadataSource is StrategyNone when Metadata is nil.
	MetadataSource Strategy
}

// HasMetadata reports whether metadata was recovered.
func (r Result) HasMetadata() bool {
	return r.Metadata != nil
}

// Parser holds the tunables of the extraction cascade. The zero value is not
// usable; call NewParser. A Parser is immutable and safe for concurrent use.
type Parser struct {
	window int
	accept AcceptFunc
}

// Option configures a Parser.
type Option func(*Parser)

// WithScanWindow sets how many characters past the first opening brace the
// brace scan may look at. Values below 2 are ignored.
func WithScanWindow(n int) Option {
	return func(p *Parser) {
		if n >= 2 {
			p.window = n
		}
	}
}

// WithRequiredFields makes the brace scan accept a candidate only when one
// of the given fields is present and truthy.
func WithRequiredFields(names ...string) Option {
	return func(p *Parser) {
		if len(names) > 0 {
			p.accept = RequireAnyField(names...)
		}
	}
}

// WithAcceptFunc replaces the brace scan acceptance predicate.
func WithAcceptFunc(fn AcceptFunc) Option {
	return func(p *Parser) {
		if fn != nil {
			p.accept = fn
		}
	}
}

// NewParser creates a parser. Defaults: a 2000 character scan window and a
// predicate requiring "topic" or "audience".
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		window: DefaultScanWindow,
		accept: RequireAnyField("topic", "audience"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses raw with the default parser.
func Parse(raw string) Result {
	return defaultParser.Parse(raw)
}

// Parse extracts metadata, summary and body from raw. It never fails.
func (p *Parser) Parse(raw string) Result {
	md, source, metaComment := p.ExtractMetadata(raw)
	summary, summaryComment := extractSummary(raw)

	body := raw
	if metaComment != "" {
		body = strings.Replace(body, metaComment, "", 1)
	}
	if summaryComment != "" {
		body = strings.Replace(body, summaryComment, "", 1)
	}
	body = CleanBody(body)
	if body == "" {
		// Nothing but marker comments; keep them rather than show nothing.
		body = CleanBody(raw)
	}

	return Result{
		Body:           body,
		Metadata:       md,
		Summary:        summary,
		MetadataSource: source,
	}
}

// ExtractMetadata runs the metadata cascade and stops at the first strategy
// that yields a decodable object. The last return value is the META comment
// text when the first strategy won, so the caller can drop it from the body.
func (p *Parser) ExtractMetadata(raw string) (*Metadata, Strategy, string) {
	if md, comment, ok := fromMetaComment(raw); ok {
		return md, StrategyMetaComment, comment
	}
	if md, ok := fromFencedJSON(raw); ok {
		return md, StrategyFencedJSON, ""
	}
	if md, ok := p.fromBraceScan(raw); ok {
		return md, StrategyBraceScan, ""
	}
	return nil, StrategyNone, ""
}

func fromMetaComment(raw string) (*Metadata, string, bool) {
	m := metaCommentRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, "", false
	}

	payload := strings.TrimSpace(m[1])
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")

	md, ok := decodeMetadata(payload)
	if !ok {
		return nil, "", false
	}
	return md, m[0], true
}

func fromFencedJSON(raw string) (*Metadata, bool) {
	m := fencedJSONRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeMetadata(m[1])
}

// fromBraceScan tries every closing brace after the first opening brace as
// the end of the object, within the scan window. Braces inside string
// literals are not tracked, so a literal "}" ends a candidate early; such a
// candidate simply fails to decode and the scan moves on.
func (p *Parser) fromBraceScan(raw string) (*Metadata, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, false
	}

	seen := 0
	for off, r := range raw[start+1:] {
		if seen >= p.window-1 {
			break
		}
		seen++
		if r != '}' {
			continue
		}

		end := start + 1 + off + 1
		md, ok := decodeMetadata(raw[start:end])
		if ok && p.accept(md.Raw) {
			return md, true
		}
	}
	return nil, false
}

// ExtractSummary returns the trimmed text of the SUMMARY marker comment.
func ExtractSummary(raw string) (string, bool) {
	s, _ := extractSummary(raw)
	if s == nil {
		return "", false
	}
	return *s, true
}

func extractSummary(raw string) (*string, string) {
	m := summaryCommentRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, ""
	}
	s := strings.TrimSpace(m[1])
	if s == "" {
		return nil, ""
	}
	return &s, m[0]
}

// CleanBody removes markdown fence markers from raw. It is idempotent. When
// raw consists of nothing but fence markers it is returned unchanged, so a
// non-empty input never yields an empty body.
func CleanBody(raw string) string {
	body := strings.ReplaceAll(raw, "```html", "")
	body = strings.ReplaceAll(body, "```", "")
	if body == "" {
		return raw
	}
	return body
}
