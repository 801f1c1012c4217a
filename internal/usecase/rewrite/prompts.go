package rewrite

import (
	"regexp"
	"strconv"
	"strings"
)

// systemPrompt establishes the fact-checking journalist rubric every
// draft, bias-revision, and expansion call shares. Content is
// paraphrasable; the five delimited sections and their literal
// delimiters are not.
const systemPrompt = `You are a fact-checking journalist producing a neutral news brief from a single source article.

Parse the article's claims. When citing a law or regulation, name it and give its year. Frame developments on a five-to-ten-year timeline where relevant. Cite at least one source, including a primary document where one exists. Note any material economic interests disclosed or implied by the source. Avoid loaded labels (e.g. "regime", "terrorist", "extremist") unless the label is a legal designation made by a competent authority.

Produce a neutral body within the requested word count.

Respond with exactly these five sections, in order, using these literal delimiters on their own line:

==HEADLINE==
<a neutral headline>
==BRIEF==
<the body, within the requested word count>
==CONTEXT==
<background context, or the literal word None if there is none>
==SOURCES==
<one URL per line>
==SIDE-CAR==
<a JSON object of any additional structured notes, or {}>`

// buildDraftPrompt is the user message for the initial draft call.
func buildDraftPrompt(title, content, sourceID, url string, minWords, maxWords int) string {
	return "Write a neutral news brief of " + wordBand(minWords, maxWords) + " words from this article.\n\n" +
		"Title: " + title + "\n" +
		"Source: " + sourceID + "\n" +
		"URL: " + url + "\n" +
		"Content:\n" + content
}

// buildBiasRevisionPrompt asks for a neutral rewrite preserving
// citations and section markup, naming the terms that triggered the
// revision so the model can target them specifically.
func buildBiasRevisionPrompt(draft string, flaggedTerms []string) string {
	return "The following brief uses loaded language (" + strings.Join(flaggedTerms, ", ") + "). " +
		"Rewrite it to be neutral, preserving every citation and the exact five-section markup " +
		"(==HEADLINE==, ==BRIEF==, ==CONTEXT==, ==SOURCES==, ==SIDE-CAR==).\n\n" + draft
}

// buildExpansionPrompt asks for an expanded body meeting the lower
// word bound, preserving section markup.
func buildExpansionPrompt(draft string, minWords int) string {
	return "The BRIEF section below is too short. Expand it to at least " +
		strconv.Itoa(minWords) + " words while preserving every citation and the exact five-section markup " +
		"(==HEADLINE==, ==BRIEF==, ==CONTEXT==, ==SOURCES==, ==SIDE-CAR==).\n\n" + draft
}

func wordBand(min, max int) string {
	return strconv.Itoa(min) + "-" + strconv.Itoa(max)
}

// fillerParagraph is appended, deterministically, when a brief is
// still short of MinWords after MaxExpansionAttempts expansion calls.
// Its word count is fixed and documented so operators can account for
// it in compliance monitoring.
const fillerParagraph = `This brief was generated from a single source article; further independent confirmation of the above claims was not available at the time of writing. Readers are encouraged to consult the cited source directly for the complete account, and to watch for follow-up reporting as the story develops further in the coming days and weeks.`

// biasLexicon is the fixed, case-insensitive list of loaded terms the
// bias scan checks for.
var biasLexicon = []string{
	"brutal", "shocking", "stunning", "devastating", "savage",
	"terrorist", "regime", "strongman", "dictator", "rogue",
	"aggressive", "unprovoked", "innocent", "victims", "heroes",
	"extremist", "radical", "militant", "thugs", "cronies",
}

// primaryDomainPatterns is the fixed allow-list of regexes identifying
// a primary source, compiled once at package init.
var primaryDomainPatterns = compilePrimaryDomainPatterns()

func compilePrimaryDomainPatterns() []*regexp.Regexp {
	raw := []string{
		// government TLDs
		`\.gov(\.|$)`, `\.gob(\.|$)`, `\.go\.[a-z]{2}$`, `\.edu`,
		// international organisations
		`un\.org`, `icj-cij\.org`, `icc-cpi\.int`, `who\.int`,
		`worldbank\.org`, `imf\.org`, `europa\.eu`, `ec\.europa\.eu`,
		// government data / legislative sources
		`data\.gov`, `congress\.gov`, `legislation\.gov\.uk`,
		`justice\.gc\.ca`, `parliament\.`, `court`,
		// reputable outlets
		`reuters`, `ap\.org`, `bbc\.(com|co\.uk)`, `npr\.org`, `pbs\.org`,
		`aljazeera\.com`, `dw\.com`, `france24\.com`, `cnn\.com`,
		`nytimes\.com`, `washingtonpost\.com`, `wsj\.com`, `bloomberg\.com`,
		`ft\.com`, `economist\.com`,
		// research
		`arxiv\.org`, `researchgate\.net`, `scholar\.google\.com`,
	}
	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// isPrimarySource reports whether url matches any primary-domain
// pattern.
func isPrimarySource(url string) bool {
	for _, p := range primaryDomainPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}
