// Package vector provides a Qdrant-backed implementation of the chunk and
// entity vector store ports (SPEC_FULL.md §6). A single Store instance owns
// one Qdrant collection; internal/wiring builds two instances, one for
// chunks and one for entities, matching the two VectorKind values in
// domain.VectorMeta.
package vector

import (
	"context"
	"fmt"

	"github.com/kgraph/indexer/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is the sole owner of all Qdrant operations for one collection.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address,
// talking to the named collection.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vector: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if it doesn't already exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vector: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vector: create collection %s: %w", s.collection, err)
	}
	return nil
}

// UpsertBatch stores VectorEntry rows into Qdrant, idempotent by id
// (SPEC_FULL.md §6). Used by both the chunk embedder (type="chunk") and the
// persister (type="entity").
func (s *Store) UpsertBatch(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: e.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}},
			},
			Payload: metaToPayload(e.Meta),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vector: upsert %d points: %w", len(entries), err)
	}
	return nil
}

// DeleteByDocID removes all points tagged with the given document id, used
// to clear stale chunk/entity vectors before a document is re-ingested from
// scratch.
func (s *Store) DeleteByDocID(ctx context.Context, documentID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Must: []*pb.Condition{fieldMatch("document_id", documentID)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vector: delete by document_id %s: %w", documentID, err)
	}
	return nil
}

// SearchResult is a single k-NN search hit.
type SearchResult struct {
	ID    string
	Score float32
	Meta  domain.VectorMeta
}

// Search performs k-NN similarity search (query-mode, outside the
// ingestion core, kept for completeness and testability of the adapter).
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = SearchResult{
			ID:    r.GetId().GetUuid(),
			Score: r.GetScore(),
			Meta:  payloadToMeta(r.GetPayload()),
		}
	}
	return results, nil
}

func metaToPayload(m domain.VectorMeta) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"type":        {Kind: &pb.Value_StringValue{StringValue: string(m.Type)}},
		"content":     {Kind: &pb.Value_StringValue{StringValue: m.Content}},
		"document_id": {Kind: &pb.Value_StringValue{StringValue: m.DocumentID}},
		"project_id":  {Kind: &pb.Value_StringValue{StringValue: m.ProjectID}},
	}
	if m.HasChunkIdx {
		payload["chunk_index"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(m.ChunkIndex)}}
	}
	return payload
}

func payloadToMeta(payload map[string]*pb.Value) domain.VectorMeta {
	m := domain.VectorMeta{}
	for k, v := range payload {
		switch k {
		case "type":
			m.Type = domain.VectorKind(v.GetStringValue())
		case "content":
			m.Content = v.GetStringValue()
		case "document_id":
			m.DocumentID = v.GetStringValue()
		case "project_id":
			m.ProjectID = v.GetStringValue()
		case "chunk_index":
			m.ChunkIndex = int(v.GetIntegerValue())
			m.HasChunkIdx = true
		}
	}
	return m
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}
