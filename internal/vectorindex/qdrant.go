package vectorindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
)

const component = "vectorindex"

// qdrantIndex implements Index over Qdrant's gRPC API (default port 6334).
// Qdrant only accepts UUIDs or positive integers as point ids, so a caller id
// that isn't already a UUID is deterministically remapped with
// uuid.NewSHA1 and the original id is preserved in the payload so search
// results and lookups can still be addressed by it.
type qdrantIndex struct {
	client *qdrant.Client

	mu          sync.Mutex
	collections map[string]collectionInfo
}

type collectionInfo struct {
	dimension int
	metric    string
}

// NewQdrantIndex dials the configured Qdrant instance.
func NewQdrantIndex(cfg config.QdrantConfig) (Index, error) {
	qc := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("create qdrant client: %w", err))
	}
	return &qdrantIndex{client: client, collections: make(map[string]collectionInfo)}, nil
}

func pointIDFor(id string) (qdrant.PointId, string) {
	if _, err := uuid.Parse(id); err == nil {
		return *qdrant.NewIDUUID(id), ""
	}
	remapped := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
	return *qdrant.NewIDUUID(remapped), id
}

func distanceFor(metric string) qdrant.Distance {
	switch strings.ToLower(strings.TrimSpace(metric)) {
	case "l2", "euclid", "euclidean":
		return qdrant.Distance_Euclid
	case "ip", "dot":
		return qdrant.Distance_Dot
	case "manhattan":
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Cosine
	}
}

func (q *qdrantIndex) EnsureCollection(ctx context.Context, collection string, dimension int, metric string) error {
	if collection == "" {
		return apperr.Newf(apperr.InvalidInput, component, "collection name is required")
	}
	if dimension <= 0 {
		return apperr.Newf(apperr.InvalidInput, component, "dimension must be > 0")
	}

	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("check collection exists: %w", err))
	}
	if !exists {
		if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: distanceFor(metric),
			}),
		}); err != nil {
			return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("create collection: %w", err))
		}
	}

	q.mu.Lock()
	q.collections[collection] = collectionInfo{dimension: dimension, metric: metric}
	q.mu.Unlock()
	return nil
}

func (q *qdrantIndex) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		pid, originalID := pointIDFor(r.ID)
		payloadMap := make(map[string]any, len(r.Payload)+1)
		for k, v := range r.Payload {
			payloadMap[k] = v
		}
		if originalID != "" {
			payloadMap[PAYLOADIDField] = originalID
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		points = append(points, &qdrant.PointStruct{
			Id:      &pid,
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payloadMap),
		})
	}
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collection, Points: points}); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("upsert: %w", err))
	}
	return nil
}

func buildFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: must}
}

func (q *qdrantIndex) Search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(k)

	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("search: %w", err))
	}

	out := make([]SearchHit, 0, len(hits))
	for _, hit := range hits {
		id, payload := idAndPayloadFrom(hit.Id, hit.Payload)
		out = append(out, SearchHit{ID: id, Score: float64(hit.Score), Payload: payload})
	}
	return out, nil
}

func (q *qdrantIndex) Scroll(ctx context.Context, collection, cursor string, limit int, filter map[string]string) ([]ScrollRecord, string, error) {
	if limit <= 0 {
		limit = 100
	}
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if cursor != "" {
		pid, _ := pointIDFor(cursor)
		req.Offset = &pid
	}

	points, err := q.client.Scroll(ctx, req)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("scroll: %w", err))
	}

	out := make([]ScrollRecord, 0, len(points))
	for _, p := range points {
		id, payload := idAndPayloadFrom(p.Id, p.Payload)
		out = append(out, ScrollRecord{ID: id, Payload: payload})
	}

	nextCursor := ""
	if len(points) == limit {
		if last := points[len(points)-1].Id; last != nil {
			nextCursor = last.GetUuid()
		}
	}
	return out, nextCursor, nil
}

func idAndPayloadFrom(pid *qdrant.PointId, rawPayload map[string]*qdrant.Value) (string, map[string]string) {
	uuidStr := ""
	if pid != nil {
		uuidStr = pid.GetUuid()
		if uuidStr == "" {
			uuidStr = pid.String()
		}
	}
	payload := make(map[string]string, len(rawPayload))
	originalID := ""
	for k, v := range rawPayload {
		if k == PAYLOADIDField {
			originalID = v.GetStringValue()
			continue
		}
		payload[k] = v.GetStringValue()
	}
	id := originalID
	if id == "" {
		id = uuidStr
	}
	return id, payload
}

func (q *qdrantIndex) Get(ctx context.Context, collection, id string) (map[string]string, error) {
	pid, _ := pointIDFor(id)
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{&pid},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("get: %w", err))
	}
	if len(points) == 0 {
		return nil, apperr.Newf(apperr.NotFound, component, "no record with id %q", id)
	}
	_, payload := idAndPayloadFrom(points[0].Id, points[0].Payload)
	return payload, nil
}

func (q *qdrantIndex) UpdatePayload(ctx context.Context, collection, id string, fields map[string]string) error {
	pid, _ := pointIDFor(id)
	payloadMap := make(map[string]any, len(fields))
	for k, v := range fields {
		payloadMap[k] = v
	}
	_, err := q.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: collection,
		Payload:        qdrant.NewValueMap(payloadMap),
		PointsSelector: qdrant.NewPointsSelector(&pid),
	})
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("update payload: %w", err))
	}
	return nil
}

func (q *qdrantIndex) DeleteIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pid, _ := pointIDFor(id)
		pids = append(pids, &pid)
	}
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pids...),
	}); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("delete ids: %w", err))
	}
	return nil
}

func (q *qdrantIndex) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error {
	f := buildFilter(filter)
	if f == nil {
		return apperr.Newf(apperr.InvalidInput, component, "delete by filter requires a non-empty filter")
	}
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(f),
	}); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("delete by filter: %w", err))
	}
	return nil
}

func (q *qdrantIndex) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := q.client.ListCollections(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("list collections: %w", err))
	}
	return resp, nil
}

func (q *qdrantIndex) Health(ctx context.Context) error {
	if _, err := q.client.ListCollections(ctx); err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("health check: %w", err))
	}
	return nil
}

func (q *qdrantIndex) Close() error {
	return q.client.Close()
}
