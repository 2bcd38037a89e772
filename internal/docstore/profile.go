package docstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// GetProfile fetches a student profile, or a zero-value profile with ok=false
// if none exists yet (personalization is opt-in and lazily created).
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.StudentProfile, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT user_id, name, student_id, email, phone, gender, dob, address, level, major, faculty,
    class, year, language, detail_level, personality_summary, personality_traits,
    topics_of_interest, interaction_history, counters, field_confidences, created_at, updated_at
FROM student_profiles WHERE user_id = $1`, userID)

	p, err := scanProfile(row)
	if err == pgx.ErrNoRows {
		return domain.StudentProfile{}, false, nil
	}
	if err != nil {
		return domain.StudentProfile{}, false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return p, true, nil
}

// PutProfile inserts or fully replaces a student profile.
func (s *Store) PutProfile(ctx context.Context, p domain.StudentProfile) error {
	topics, err := json.Marshal(p.TopicsOfInterest)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	history, err := json.Marshal(p.InteractionHistory)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	counters, err := json.Marshal(p.Counters)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	confidences, err := json.Marshal(p.FieldConfidences)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO student_profiles (user_id, name, student_id, email, phone, gender, dob, address,
    level, major, faculty, class, year, language, detail_level, personality_summary,
    personality_traits, topics_of_interest, interaction_history, counters, field_confidences,
    created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (user_id) DO UPDATE SET
    name = EXCLUDED.name, student_id = EXCLUDED.student_id, email = EXCLUDED.email,
    phone = EXCLUDED.phone, gender = EXCLUDED.gender, dob = EXCLUDED.dob, address = EXCLUDED.address,
    level = EXCLUDED.level, major = EXCLUDED.major, faculty = EXCLUDED.faculty, class = EXCLUDED.class,
    year = EXCLUDED.year, language = EXCLUDED.language, detail_level = EXCLUDED.detail_level,
    personality_summary = EXCLUDED.personality_summary, personality_traits = EXCLUDED.personality_traits,
    topics_of_interest = EXCLUDED.topics_of_interest, interaction_history = EXCLUDED.interaction_history,
    counters = EXCLUDED.counters, field_confidences = EXCLUDED.field_confidences,
    updated_at = EXCLUDED.updated_at
`, p.UserID, p.Name, p.StudentID, p.Email, p.Phone, p.Gender, p.DOB, p.Address, p.Level, p.Major,
		p.Faculty, p.Class, p.Year, p.Language, p.DetailLevel, p.PersonalitySummary, p.PersonalityTraits,
		topics, history, counters, confidences, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

func scanProfile(row pgx.Row) (domain.StudentProfile, error) {
	var p domain.StudentProfile
	var traits []string
	var topics, history, counters, confidences []byte
	if err := row.Scan(&p.UserID, &p.Name, &p.StudentID, &p.Email, &p.Phone, &p.Gender, &p.DOB, &p.Address,
		&p.Level, &p.Major, &p.Faculty, &p.Class, &p.Year, &p.Language, &p.DetailLevel, &p.PersonalitySummary,
		&traits, &topics, &history, &counters, &confidences, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.StudentProfile{}, err
	}
	p.PersonalityTraits = traits
	if len(topics) > 0 {
		_ = json.Unmarshal(topics, &p.TopicsOfInterest)
	}
	if len(history) > 0 {
		_ = json.Unmarshal(history, &p.InteractionHistory)
	}
	if len(counters) > 0 {
		_ = json.Unmarshal(counters, &p.Counters)
	}
	if len(confidences) > 0 {
		_ = json.Unmarshal(confidences, &p.FieldConfidences)
	}
	return p, nil
}
