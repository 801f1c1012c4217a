package rewrite

import (
	"encoding/json"
	"regexp"
	"strings"
)

var sectionDelimiters = []string{
	"==HEADLINE==",
	"==BRIEF==",
	"==CONTEXT==",
	"==SOURCES==",
	"==SIDE-CAR==",
}

// draftSections is the parsed, tolerant breakdown of one LLM response.
type draftSections struct {
	Headline string
	Body     string
	Context  *string
	Sources  []string
	SideCar  map[string]any
}

var trailingPunctuation = regexp.MustCompile(`[),.;:"']+$`)

// parseSections splits raw on the five literal section delimiters.
// Unrecognized or missing sections are left at their zero value rather
// than causing a parse error — only a completely unparseable response
// (no delimiters found at all) is reported as an error.
func parseSections(raw string) (draftSections, error) {
	positions := make(map[string]int, len(sectionDelimiters))
	for _, d := range sectionDelimiters {
		if i := strings.Index(raw, d); i >= 0 {
			positions[d] = i
		}
	}
	if len(positions) == 0 {
		return draftSections{}, ErrParseError
	}

	raws := make(map[string]string, len(sectionDelimiters))
	for idx, d := range sectionDelimiters {
		start, ok := positions[d]
		if !ok {
			continue
		}
		start += len(d)
		end := len(raw)
		for _, next := range sectionDelimiters[idx+1:] {
			if nextStart, ok := positions[next]; ok && nextStart < end {
				end = nextStart
			}
		}
		raws[d] = strings.TrimSpace(raw[start:end])
	}

	sections := draftSections{
		Headline: raws["==HEADLINE=="],
		Body:     raws["==BRIEF=="],
	}

	if ctx, ok := raws["==CONTEXT=="]; ok {
		if !strings.EqualFold(ctx, "none") && ctx != "" {
			sections.Context = &ctx
		}
	}

	if srcRaw, ok := raws["==SOURCES=="]; ok {
		for _, line := range strings.Split(srcRaw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			sections.Sources = append(sections.Sources, cleanSourceURL(line))
		}
	}

	sections.SideCar = map[string]any{}
	if sideCarRaw, ok := raws["==SIDE-CAR=="]; ok && sideCarRaw != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(sideCarRaw), &parsed); err == nil {
			sections.SideCar = parsed
		}
	}

	return sections, nil
}

// cleanSourceURL strips trailing punctuation a model sometimes appends
// to a URL when it ends a sentence with it.
func cleanSourceURL(url string) string {
	return trailingPunctuation.ReplaceAllString(strings.TrimSpace(url), "")
}
