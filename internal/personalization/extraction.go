package personalization

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
)

const (
	minConfidence         = 0.7
	minInferredConfidence = 0.8
	minOverwriteConfidence = 0.85
)

// extractedField is one entry of the LLM's schema-shaped response.
type extractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	Inferred   bool    `json:"inferred"`
}

// extractionResponse is the fixed-field shape the schema prompt requests:
// identity, preferences, interests, personality, each a map of field name to
// extractedField. Interests additionally carry a topic name as the key.
type extractionResponse struct {
	Identity    map[string]extractedField `json:"identity"`
	Preferences map[string]extractedField `json:"preferences"`
	Interests   map[string]extractedField `json:"interests"`
	Personality map[string]extractedField `json:"personality"`
}

var validFieldFormats = map[string]*regexp.Regexp{
	"student_id": regexp.MustCompile(`^[A-Za-z0-9]{6,12}$`),
	"email":      regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
	"phone":      regexp.MustCompile(`^[0-9+()\-\s]{8,15}$`),
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true, "nam": true, "nữ": true, "khác": true}
var validDetailLevels = map[string]bool{string(domain.DetailBrief): true, string(domain.DetailMedium): true, string(domain.DetailDetailed): true}
var validLanguages = map[string]bool{"vi": true, "en": true, "vietnamese": true, "english": true}

const extractionSchemaPrompt = `You extract durable facts about a student from one dialogue turn. ` +
	`Respond ONLY with a JSON object of this exact shape (omit a field entirely if nothing was learned about it):
{
  "identity": {"name": {...}, "student_id": {...}, "email": {...}, "phone": {...}, "gender": {...}, "dob": {...}, "address": {...}, "major": {...}, "faculty": {...}, "class": {...}},
  "preferences": {"language": {...}, "detail_level": {...}},
  "interests": {"<topic name>": {...}, ...},
  "personality": {"summary": {...}, "trait_1": {...}, "trait_2": {...}}
}
Each {...} is {"value": string, "confidence": number between 0 and 1, "evidence": string, "inferred": boolean}.
Set inferred=true only when the value was not stated directly. Never invent a field with no supporting evidence.`

// ExtractMemory runs the memory-extraction pipeline (§4.10): compose the
// schema prompt, parse tolerantly, gate updates by confidence, validate
// formatted fields, and persist. allowInference controls whether inferred
// (not directly stated) fields are eligible at all. Extraction failures are
// swallowed — the caller's profile is returned unchanged, per the
// propagation policy that memory-extraction failures never surface.
func (s *Service) ExtractMemory(ctx context.Context, provider llm.Provider, model string, userID, userMessage, assistantMessage, recentContext string, allowInference bool) domain.StudentProfile {
	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.StudentProfile{UserID: userID}
	}

	turn := "Recent context:\n" + recentContext + "\n\nUser: " + userMessage + "\nAssistant: " + assistantMessage
	resp, err := provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: extractionSchemaPrompt},
		{Role: "user", Content: turn},
	}, nil, model)
	if err != nil {
		return profile
	}

	extracted, ok := parseExtraction(resp.Content)
	if !ok {
		return profile
	}

	now := time.Now()
	applyFields(&profile, "name", extracted.Identity["name"], allowInference, now, func(v string) { profile.Name = v })
	applyFormattedField(&profile, "student_id", extracted.Identity["student_id"], allowInference, now, func(v string) { profile.StudentID = v })
	applyFormattedField(&profile, "email", extracted.Identity["email"], allowInference, now, func(v string) { profile.Email = v })
	applyFormattedField(&profile, "phone", extracted.Identity["phone"], allowInference, now, func(v string) { profile.Phone = v })
	applyEnumField(&profile, "gender", extracted.Identity["gender"], allowInference, now, validGenders, func(v string) { profile.Gender = v })
	applyFields(&profile, "dob", extracted.Identity["dob"], allowInference, now, func(v string) { profile.DOB = v })
	applyFields(&profile, "address", extracted.Identity["address"], allowInference, now, func(v string) { profile.Address = v })
	applyFields(&profile, "major", extracted.Identity["major"], allowInference, now, func(v string) { profile.Major = v })
	applyFields(&profile, "faculty", extracted.Identity["faculty"], allowInference, now, func(v string) { profile.Faculty = v })
	applyFields(&profile, "class", extracted.Identity["class"], allowInference, now, func(v string) { profile.Class = v })

	applyEnumField(&profile, "language", extracted.Preferences["language"], allowInference, now, validLanguages, func(v string) { profile.Language = v })
	applyEnumField(&profile, "detail_level", extracted.Preferences["detail_level"], allowInference, now, validDetailLevels, func(v string) { profile.DetailLevel = domain.DetailLevel(v) })

	if summary, ok := extracted.Personality["summary"]; ok && fieldPasses(summary, allowInference) {
		profile.PersonalitySummary = summary.Value
	}
	for name, f := range extracted.Personality {
		if name == "summary" || !fieldPasses(f, allowInference) {
			continue
		}
		if !containsTrait(profile.PersonalityTraits, f.Value) {
			profile.PersonalityTraits = append(profile.PersonalityTraits, f.Value)
		}
	}
	if len(profile.PersonalityTraits) > domain.MaxPersonalityTraits {
		profile.PersonalityTraits = profile.PersonalityTraits[:domain.MaxPersonalityTraits]
	}

	for topic, f := range extracted.Interests {
		if !fieldPasses(f, allowInference) {
			continue
		}
		profile.TopicsOfInterest = bumpInterest(profile.TopicsOfInterest, topic, now)
	}
	sortInterestsByScore(profile.TopicsOfInterest)
	if len(profile.TopicsOfInterest) > domain.MaxTopicsOfInterest {
		profile.TopicsOfInterest = profile.TopicsOfInterest[:domain.MaxTopicsOfInterest]
	}

	profile.UpdatedAt = now
	if err := s.Store.PutProfile(ctx, profile); err != nil {
		return profile
	}
	return profile
}

// parseExtraction tolerates surrounding prose by extracting the outermost
// JSON object before unmarshaling.
func parseExtraction(content string) (extractionResponse, bool) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return extractionResponse{}, false
	}
	var resp extractionResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return extractionResponse{}, false
	}
	return resp, true
}

// fieldPasses applies the confidence-floor gate: directly stated fields need
// confidence >= minConfidence, inferred fields need confidence >=
// minInferredConfidence (and are rejected outright when allowInference is
// false).
func fieldPasses(f extractedField, allowInference bool) bool {
	if f.Value == "" {
		return false
	}
	if f.Inferred {
		return allowInference && f.Confidence >= minInferredConfidence
	}
	return f.Confidence >= minConfidence
}

// applyFields applies an unformatted field, respecting the overwrite rule:
// replacing a non-empty existing value requires confidence >=
// minOverwriteConfidence and a differing value.
func applyFields(p *domain.StudentProfile, name string, f extractedField, allowInference bool, now time.Time, set func(string)) {
	if !fieldPasses(f, allowInference) {
		return
	}
	if existing, ok := p.FieldConfidences[name]; ok && existing.Value != "" {
		if existing.Value == f.Value || f.Confidence < minOverwriteConfidence {
			return
		}
	}
	set(f.Value)
	recordConfidence(p, name, f, now)
}

func applyFormattedField(p *domain.StudentProfile, name string, f extractedField, allowInference bool, now time.Time, set func(string)) {
	if pattern, ok := validFieldFormats[name]; ok && f.Value != "" && !pattern.MatchString(f.Value) {
		return
	}
	applyFields(p, name, f, allowInference, now, set)
}

func applyEnumField(p *domain.StudentProfile, name string, f extractedField, allowInference bool, now time.Time, vocab map[string]bool, set func(string)) {
	if f.Value != "" && !vocab[strings.ToLower(f.Value)] {
		return
	}
	applyFields(p, name, f, allowInference, now, set)
}

func recordConfidence(p *domain.StudentProfile, name string, f extractedField, now time.Time) {
	if p.FieldConfidences == nil {
		p.FieldConfidences = map[string]domain.FieldConfidence{}
	}
	p.FieldConfidences[name] = domain.FieldConfidence{
		Value: f.Value, Confidence: f.Confidence, Inferred: f.Inferred, UpdatedAt: now,
	}
}

func containsTrait(traits []string, v string) bool {
	for _, t := range traits {
		if t == v {
			return true
		}
	}
	return false
}

func sortInterestsByScore(interests []domain.TopicInterest) {
	for i := 1; i < len(interests); i++ {
		for j := i; j > 0 && interests[j-1].Score < interests[j].Score; j-- {
			interests[j-1], interests[j] = interests[j], interests[j-1]
		}
	}
}
