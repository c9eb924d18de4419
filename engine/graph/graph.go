package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// GraphStore is the Neo4j-backed implementation of the graph store port.
// Entity identity is (projectID, normalized name); relations reference
// entities by name only, never by pointer (SPEC_FULL.md §9).
//
// Entity lookups are scoped by (project_id, name) together, which rules out
// pkg/repo.Neo4jRepo's single-property Get: its generated Cypher matches one
// idKey in isolation, so keying it on name alone would return another
// project's entity of the same name. Every query here runs its own
// project_id + name match instead.
type GraphStore struct {
	opener sessionOpener
}

// New creates a GraphStore backed by a real Neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{opener: &realOpener{driver: driver}}
}

// NewWithOpener creates a GraphStore against a custom sessionOpener, for
// testing without a live database.
func NewWithOpener(opener sessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// GetEntity returns a single entity by normalized name within a project.
func (g *GraphStore) GetEntity(ctx context.Context, projectID, name string) (domain.Entity, error) {
	name = domain.NormalizeEntityName(name)
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Entity {project_id: $project_id, name: $name}) RETURN n`
	result, err := sess.Run(ctx, cypher, map[string]any{"project_id": projectID, "name": name})
	if err != nil {
		return domain.Entity{}, err
	}
	if !result.Next(ctx) {
		return domain.Entity{}, fmt.Errorf("graph: entity %q not found in project %q", name, projectID)
	}
	node, ok := nodeValue(result.Record(), "n")
	if !ok {
		return domain.Entity{}, fmt.Errorf("graph: malformed entity record")
	}
	return entityFromProps(node.Props), nil
}

// UpsertEntities writes every entity via MERGE on (project_id, name), so
// re-ingest of the same document overwrites rather than duplicates rows.
// Must be called before UpsertRelations for the same batch (SPEC_FULL.md
// §4.5.4): some graph backends implicitly create stub nodes for missing
// relation endpoints, which would otherwise race with the proper write.
func (g *GraphStore) UpsertEntities(ctx context.Context, projectID string, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, e := range entities {
			cypher := `MERGE (n:Entity {project_id: $project_id, name: $name}) SET n += $props`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"project_id": projectID,
				"name":       domain.NormalizeEntityName(e.Name),
				"props":      entityToMap(projectID, e),
			}); err != nil {
				return nil, fmt.Errorf("graph: upsert entity %q: %w", e.Name, err)
			}
		}
		return nil, nil
	})
	return err
}

// UpsertRelations writes every relation as a MERGEd edge between the two
// named entities, typed by a sanitized form of its keywords (falling back
// to RELATED_TO). Endpoints are matched by (project_id, name); if either
// endpoint entity does not exist yet, the MATCH finds no row and that
// relation is not written, so callers must have already called
// UpsertEntities for the same batch.
func (g *GraphStore) UpsertRelations(ctx context.Context, projectID string, relations []domain.Relation) error {
	if len(relations) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, r := range relations {
			relType := sanitizeRelType(relationTypeHint(r.Keywords))
			cypher := fmt.Sprintf(
				`MATCH (a:Entity {project_id: $project_id, name: $src}), (b:Entity {project_id: $project_id, name: $tgt})
				 MERGE (a)-[rel:%s]->(b)
				 SET rel.description = $description, rel.keywords = $keywords, rel.weight = $weight`,
				relType,
			)
			weight := r.Weight
			if weight == 0 {
				weight = 1.0
			}
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"project_id":  projectID,
				"src":         domain.NormalizeEntityName(r.SrcName),
				"tgt":         domain.NormalizeEntityName(r.TgtName),
				"description": r.Description,
				"keywords":    r.Keywords,
				"weight":      weight,
			}); err != nil {
				return nil, fmt.Errorf("graph: upsert relation %s->%s: %w", r.SrcName, r.TgtName, err)
			}
		}
		return nil, nil
	})
	return err
}

// Neighbors returns entities within the given traversal depth from a named
// node. This is a query-mode operation (outside the ingestion core) kept
// for operational inspection and tests.
func (g *GraphStore) Neighbors(ctx context.Context, projectID, name string, depth int) ([]domain.Entity, error) {
	if depth <= 0 {
		depth = 1
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (start:Entity {project_id: $project_id, name: $name})-[*1..%d]-(n:Entity)
		 WHERE n.name <> $name
		 RETURN DISTINCT n`, depth)
	result, err := sess.Run(ctx, cypher, map[string]any{"project_id": projectID, "name": domain.NormalizeEntityName(name)})
	if err != nil {
		return nil, err
	}
	return collectEntities(ctx, result)
}

// FindByType returns all entities of a given type within a project.
func (g *GraphStore) FindByType(ctx context.Context, projectID, entityType string) ([]domain.Entity, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Entity {project_id: $project_id, type: $type}) RETURN n`
	result, err := sess.Run(ctx, cypher, map[string]any{"project_id": projectID, "type": entityType})
	if err != nil {
		return nil, err
	}
	return collectEntities(ctx, result)
}

func collectEntities(ctx context.Context, result CypherResult) ([]domain.Entity, error) {
	var items []domain.Entity
	for result.Next(ctx) {
		node, ok := nodeValue(result.Record(), "n")
		if !ok {
			continue
		}
		items = append(items, entityFromProps(node.Props))
	}
	return items, nil
}

func nodeValue(rec *neo4j.Record, key string) (dbtype.Node, bool) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, key)
	if err != nil {
		return dbtype.Node{}, false
	}
	return node, true
}

// relationTypeHint derives a relationship-type-ish token from the first
// keyword in a comma/space separated keywords string.
func relationTypeHint(keywords string) string {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return "RELATED_TO"
	}
	fields := strings.FieldsFunc(keywords, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return "RELATED_TO"
	}
	return fields[0]
}
