// Package intent classifies a free-text query into one of the coarse
// intent labels driving orchestration policy (§4.7), using lexicon-based
// keyword matching against Vietnamese terms dominant in this domain.
package intent

import "strings"

// Result is the outcome of a Classify call.
type Result struct {
	Intent            string
	WantsFillableForm bool
	Scores            map[string]int
}

const (
	IntentGeneralAnswer       = "general_answer"
	IntentFileRequest         = "file_request"
	IntentFormRequest         = "form_request"
	IntentProcedureGuide      = "procedure_guide"
	IntentContactInfo         = "contact_info"
	IntentNavigation          = "navigation"
	IntentImageQuery          = "image_query"
	IntentClarificationNeeded = "clarification_needed"
)

// lexicon maps an intent label to the phrases that match it. Every phrase
// of a category is counted independently, so order within a list does not
// affect the score.
var lexicon = map[string][]string{
	IntentFormRequest: {
		"mẫu đơn", "đơn xin", "biểu mẫu", "mẫu giấy", "form mẫu", "tải mẫu",
	},
	IntentFileRequest: {
		"tải file", "tải về", "tải xuống", "download", "file pdf", "bản scan",
		"tệp đính kèm",
	},
	IntentProcedureGuide: {
		"cách", "hướng dẫn", "quy trình", "thủ tục", "các bước", "làm thế nào",
	},
	IntentContactInfo: {
		"số điện thoại", "liên hệ", "email của", "hotline", "gặp ai", "phòng ban nào",
	},
	IntentNavigation: {
		"ở đâu", "vị trí", "nằm ở", "phòng số", "tòa nhà nào", "đi đến",
	},
}

// fillVerbs mark a query as wanting a pre-filled (not just blank) form
// template.
var fillVerbs = []string{"điền", "điền sẵn", "fill"}

// Classify maps query, plus whether an image is attached, to an intent.
// An attached image always forces image_query regardless of text content,
// per §4.7. Otherwise every category's lexicon is matched against the
// lowercased query; the category with the strongest (most phrase matches)
// wins. When two or more categories tie for the strongest match and the
// query is short (underspecified), the result is clarification_needed.
func Classify(query string, hasImage bool) Result {
	wantsForm := containsAny(query, fillVerbs)

	if hasImage {
		return Result{Intent: IntentImageQuery, WantsFillableForm: wantsForm}
	}

	lc := strings.ToLower(query)
	scores := make(map[string]int, len(lexicon))
	best := 0
	var leaders []string
	for label, phrases := range lexicon {
		n := countMatches(lc, phrases)
		if n == 0 {
			continue
		}
		scores[label] = n
		switch {
		case n > best:
			best = n
			leaders = []string{label}
		case n == best:
			leaders = append(leaders, label)
		}
	}

	if len(leaders) == 0 {
		return Result{Intent: IntentGeneralAnswer, WantsFillableForm: wantsForm, Scores: scores}
	}
	if len(leaders) > 1 && isUnderspecified(query) {
		return Result{Intent: IntentClarificationNeeded, WantsFillableForm: wantsForm, Scores: scores}
	}
	return Result{Intent: leaders[0], WantsFillableForm: wantsForm, Scores: scores}
}

func countMatches(lowerQuery string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(lowerQuery, p) {
			n++
		}
	}
	return n
}

func containsAny(query string, phrases []string) bool {
	lc := strings.ToLower(query)
	for _, p := range phrases {
		if strings.Contains(lc, p) {
			return true
		}
	}
	return false
}

// isUnderspecified treats a short query as ambiguous when its intent
// signal is genuinely split across categories; a long query that happens
// to mention two categories' phrases is more likely asking a compound
// question than an ambiguous one.
func isUnderspecified(query string) bool {
	return len(strings.Fields(query)) <= 8
}
