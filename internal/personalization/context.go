package personalization

import (
	"strings"

	"university-query-engine/internal/domain"
)

// PersonalizedContext is the per-request prompt-injection payload §4.10
// derives from a profile: a greeting, the user's preferred verbosity, topic
// hints drawn from their decayed interests, assembled prompt additions, and
// suggested related topics to surface proactively.
type PersonalizedContext struct {
	Greeting               string
	DetailLevel             domain.DetailLevel
	TopicHints              []string
	PromptAdditions         string
	SuggestedRelatedTopics  []string
}

var levelInstructions = map[domain.AcademicLevel]string{
	domain.LevelFreshman:  "The student is a freshman; explain basic/foundational concepts and avoid assuming prior familiarity with university procedures.",
	domain.LevelSophomore: "The student is a sophomore; light background explanation is still welcome.",
	domain.LevelJunior:    "The student is a junior; assume familiarity with standard university procedures.",
	domain.LevelSenior:    "The student is a senior; assume strong familiarity, keep explanations concise.",
	domain.LevelGraduate:  "The student is a graduate student; use precise, advanced terminology freely.",
	domain.LevelAlumni:    "The person is an alumnus; frame answers around post-graduation services.",
}

var detailInstructions = map[domain.DetailLevel]string{
	domain.DetailBrief:    "Keep answers brief — a few sentences at most.",
	domain.DetailMedium:   "Give a moderately detailed answer with the key points.",
	domain.DetailDetailed: "Give a thorough, step-by-step answer.",
}

// BuildContext derives a PersonalizedContext from a (already decayed)
// profile. It never touches the store — callers pass a profile already
// retrieved via GetOrCreate.
func BuildContext(p domain.StudentProfile) PersonalizedContext {
	var hints, suggested []string
	for _, ti := range p.TopicsOfInterest {
		hints = append(hints, ti.Topic)
		if ti.Score >= 0.3 {
			suggested = append(suggested, ti.Topic)
		}
	}

	var additions []string
	if instr, ok := levelInstructions[p.Level]; ok {
		additions = append(additions, instr)
	}
	detail := p.DetailLevel
	if detail == "" {
		detail = domain.DetailMedium
	}
	if instr, ok := detailInstructions[detail]; ok {
		additions = append(additions, instr)
	}
	if p.Major != "" {
		additions = append(additions, "The student's major is "+p.Major+"; prefer examples relevant to it when natural.")
	}
	if p.PersonalitySummary != "" {
		additions = append(additions, "Student personality notes: "+p.PersonalitySummary)
	}

	return PersonalizedContext{
		Greeting:               greetingFor(p),
		DetailLevel:            detail,
		TopicHints:             hints,
		PromptAdditions:        strings.Join(additions, " "),
		SuggestedRelatedTopics: suggested,
	}
}

func greetingFor(p domain.StudentProfile) string {
	if p.Name == "" {
		return "Xin chào!"
	}
	return "Xin chào, " + p.Name + "!"
}
