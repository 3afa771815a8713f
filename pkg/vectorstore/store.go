// Package vectorstore is the vector store adapter (C3): qdrant-backed
// nearest-neighbour search, Discovery queries, and split-on-fail batch
// upsert, all scoped by project_id.
//
// Grounded on the qdrant/go-client idiom observed in the retrieval
// pack (deterministic point ids via uuid.NewSHA1, payload-as-map
// upserts) and on the platform's retry/backoff idiom for the
// split-on-fail batching strategy.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/qualcode/nucleus/pkg/config"
	"github.com/qualcode/nucleus/pkg/domain"
)

// Point is one fragment's embedding plus the payload echoed into
// Qdrant for filtering and provenance.
type Point struct {
	ProjectID  string
	FragmentID string
	Archivo    string
	ParIdx     int
	Speaker    string
	Vector     []float32
}

// Match is one retrieval hit.
type Match struct {
	FragmentID    string
	Score         float64
	Archivo       string
	ParIdx        int
	Speaker       string
	DiscoveryType string // "native" or "fallback", set only by Discover
}

// Store wraps a Qdrant collection scoped to one logical collection name
// shared by every project; isolation is enforced entirely via a
// project_id filter on every read and a project_id payload field on
// every write.
type Store struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	anchorGate float64
	log        *slog.Logger
}

// New connects to Qdrant and ensures the configured collection exists.
func New(ctx context.Context, cfg config.VectorConfig, anchorThreshold float64, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		vectorSize: uint64(cfg.VectorSize),
		anchorGate: anchorThreshold,
		log:        log,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// PointID returns the deterministic point id for one fragment, matching
// the corpus's uuid.NewSHA1-over-composite-key idiom so re-ingestion
// never creates duplicate points.
func PointID(projectID, fragmentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(projectID+"/"+fragmentID)).String()
}

func toPointStruct(p Point) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(PointID(p.ProjectID, p.FragmentID)),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"project_id":  p.ProjectID,
			"fragment_id": p.FragmentID,
			"archivo":     p.Archivo,
			"par_idx":     p.ParIdx,
			"speaker":     p.Speaker,
		}),
	}
}

// FetchVector retrieves one fragment's stored embedding, used by
// FindSimilarCodes to re-embed-by-lookup rather than re-calling the
// LLM gateway for a fragment that was already ingested.
func (s *Store) FetchVector(ctx context.Context, projectID, fragmentID string) ([]float32, error) {
	pointID := PointID(projectID, fragmentID)
	resp, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointID)},
		WithVectors:    qdrant.NewWithVectorsEnable(true),
	})
	if err != nil {
		return nil, domain.WrapUpstream(err, "vectorstore fetch vector")
	}
	if len(resp) == 0 {
		return nil, domain.ErrNotFound
	}
	return resp[0].GetVectors().GetVector().GetData(), nil
}

// Upsert writes a batch of points with split-on-failure: on a transient
// error the batch is halved and retried recursively down to batches of
// one, so one bad point never fails an entire ingestion batch.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	return s.upsertBatch(ctx, points)
}

func (s *Store) upsertBatch(ctx context.Context, points []Point) error {
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = toPointStruct(p)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         structs,
	})
	if err == nil {
		return nil
	}
	if !domain.IsTransient(err) {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	if len(points) == 1 {
		return fmt.Errorf("upsert single point %s/%s: %w", points[0].ProjectID, points[0].FragmentID, err)
	}

	s.log.Warn("vectorstore: splitting failed batch", "size", len(points), "error", err)
	mid := len(points) / 2
	if err := s.upsertBatch(ctx, points[:mid]); err != nil {
		return err
	}
	return s.upsertBatch(ctx, points[mid:])
}

func projectFilter(projectID string, excludeInterviewer bool) *qdrant.Filter {
	f := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("project_id", projectID),
		},
	}
	if excludeInterviewer {
		f.MustNot = []*qdrant.Condition{
			qdrant.NewMatch("speaker", "interviewer"),
		}
	}
	return f
}

// SearchOpts configures one Search call.
type SearchOpts struct {
	ProjectID          string
	Archivo            string // optional: restrict to one interview
	ExcludeInterviewer bool
	TopK               int
}

// Search runs a filtered kNN query, always scoped by project_id.
func (s *Store) Search(ctx context.Context, vector []float32, opts SearchOpts) ([]Match, error) {
	filter := projectFilter(opts.ProjectID, opts.ExcludeInterviewer)
	if opts.Archivo != "" {
		filter.Must = append(filter.Must, qdrant.NewMatch("archivo", opts.Archivo))
	}

	limit := uint64(opts.TopK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, domain.WrapUpstream(err, "vectorstore search")
	}
	return toMatches(resp, ""), nil
}

func toMatches(resp []*qdrant.ScoredPoint, discoveryType string) []Match {
	out := make([]Match, 0, len(resp))
	for _, pt := range resp {
		payload := pt.GetPayload()
		out = append(out, Match{
			FragmentID:    payload["fragment_id"].GetStringValue(),
			Score:         float64(pt.GetScore()),
			Archivo:       payload["archivo"].GetStringValue(),
			ParIdx:        int(payload["par_idx"].GetIntegerValue()),
			Speaker:       payload["speaker"].GetStringValue(),
			DiscoveryType: discoveryType,
		})
	}
	return out
}
