// Package graph provides a Neo4j-backed implementation of the knowledge
// graph store port (SPEC_FULL.md §6): entities and relations, keyed within
// a project by normalized entity name.
package graph

import "github.com/kgraph/indexer/engine/domain"

func entityToMap(projectID string, e domain.Entity) map[string]any {
	return map[string]any{
		"project_id":  projectID,
		"name":        domain.NormalizeEntityName(e.Name),
		"type":        e.Type,
		"description": e.Description,
		"file_path":   e.FilePath,
		"document_id": e.DocumentID,
	}
}

func entityFromProps(props map[string]any) domain.Entity {
	return domain.Entity{
		Name:        strProp(props, "name"),
		Type:        strProp(props, "type"),
		Description: strProp(props, "description"),
		FilePath:    strProp(props, "file_path"),
		DocumentID:  strProp(props, "document_id"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// sanitizeRelType ensures a relation's keywords-derived type is a valid
// Cypher relationship-type identifier.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}
