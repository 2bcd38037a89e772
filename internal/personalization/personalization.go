// Package personalization implements the Personalization Service (§4.10):
// per-user profile CRUD with read-time interest decay, bounded interaction
// recording, and LLM-driven memory extraction from a dialogue turn. It
// generalizes the teacher's agentic-memory engine — a Postgres-backed
// per-workflow note store with embedding-linked recall — into a per-user
// profile store with decaying interests and confidence-gated field updates,
// dropping the embedding/similarity-link machinery the profile use case has
// no need for.
package personalization

import (
	"context"
	"math"
	"sort"
	"time"

	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
)

const component = "personalization"

// ProfileStore is the persistence port: raw get/put of a StudentProfile,
// satisfied directly by *docstore.Store.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.StudentProfile, bool, error)
	PutProfile(ctx context.Context, p domain.StudentProfile) error
}

// Service implements profile CRUD, decay, interaction recording, and memory
// extraction over a ProfileStore.
type Service struct {
	Store  ProfileStore
	Config config.PersonalizationConfig
}

// New builds a Service from its collaborators.
func New(store ProfileStore, cfg config.PersonalizationConfig) *Service {
	return &Service{Store: store, Config: cfg}
}

// GetOrCreate fetches userID's profile, decaying and pruning its interests
// on read, or returns a fresh zero-value profile when none exists yet —
// personalization is opt-in and lazily created on first interaction.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (domain.StudentProfile, error) {
	p, ok, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return domain.StudentProfile{}, err
	}
	if !ok {
		now := time.Now()
		return domain.StudentProfile{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}
	p.TopicsOfInterest = s.decay(p.TopicsOfInterest, time.Now())
	return p, nil
}

// halfLife returns the configured decay half-life, defaulting to 30 days.
func (s *Service) halfLife() time.Duration {
	days := s.Config.InterestHalfLifeDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// decay applies score(t) = score0 * 2^(-(t-last_accessed)/H) to every
// interest, pruning anything that falls below InterestFloor.
func (s *Service) decay(interests []domain.TopicInterest, now time.Time) []domain.TopicInterest {
	h := s.halfLife().Hours()
	out := make([]domain.TopicInterest, 0, len(interests))
	for _, ti := range interests {
		elapsed := now.Sub(ti.LastAccessed).Hours()
		if elapsed > 0 {
			ti.Score *= math.Pow(2, -elapsed/h)
		}
		if ti.Score >= domain.InterestFloor {
			out = append(out, ti)
		}
	}
	return out
}

// Fields implements tools.ProfileFieldSource: the flat string fields the
// fill_form handler pre-fills a template with.
func (s *Service) Fields(ctx context.Context, userID string) (map[string]string, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	put("name", p.Name)
	put("student_id", p.StudentID)
	put("email", p.Email)
	put("phone", p.Phone)
	put("dob", p.DOB)
	put("class", p.Class)
	put("major", p.Major)
	put("faculty", p.Faculty)
	return fields, nil
}

// Record appends an interaction event (§4.10), bumps the matching interest
// score (creating it if absent), updates last_accessed, and increments the
// per-type counter. History is capped at maxHistoryEntries, evicting oldest.
const maxHistoryEntries = 200

func (s *Service) Record(ctx context.Context, userID string, kind domain.InteractionType, topic string, metadata map[string]string) error {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now()

	p.InteractionHistory = append(p.InteractionHistory, domain.InteractionEvent{
		Type: kind, Topic: topic, Metadata: metadata, Timestamp: now,
	})
	if len(p.InteractionHistory) > maxHistoryEntries {
		p.InteractionHistory = p.InteractionHistory[len(p.InteractionHistory)-maxHistoryEntries:]
	}

	if p.Counters == nil {
		p.Counters = map[string]int{}
	}
	p.Counters[string(kind)]++

	if topic != "" {
		p.TopicsOfInterest = bumpInterest(p.TopicsOfInterest, topic, now)
		sort.Slice(p.TopicsOfInterest, func(i, j int) bool {
			return p.TopicsOfInterest[i].Score > p.TopicsOfInterest[j].Score
		})
		if len(p.TopicsOfInterest) > domain.MaxTopicsOfInterest {
			p.TopicsOfInterest = p.TopicsOfInterest[:domain.MaxTopicsOfInterest]
		}
	}

	p.UpdatedAt = now
	return s.Store.PutProfile(ctx, p)
}

const interestBumpAmount = 0.2

func bumpInterest(interests []domain.TopicInterest, topic string, now time.Time) []domain.TopicInterest {
	for i := range interests {
		if interests[i].Topic == topic {
			interests[i].Score = math.Min(1.0, interests[i].Score+interestBumpAmount)
			interests[i].InteractionCount++
			interests[i].LastAccessed = now
			return interests
		}
	}
	return append(interests, domain.TopicInterest{
		Topic: topic, Score: interestBumpAmount, InteractionCount: 1,
		LastAccessed: now, Source: "recorded",
	})
}
