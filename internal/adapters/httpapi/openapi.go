package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/httpjson"
)

// handleOpenAPI renvoie une spec OpenAPI minimale pour cadrer l'API.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := map[string]any{
		"description": "OK",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"type": "object", "additionalProperties": true},
			},
		},
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "PAS API",
			"version": "v1",
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/history": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "limit", "in": "query", "schema": map[string]any{"type": "integer"}},
					},
					"responses": map[string]any{"200": jsonOK},
				},
			},
			"/api/v1/resolve/{anidbID}": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						map[string]any{"name": "anidbID", "in": "path", "required": true, "schema": map[string]any{"type": "string"}},
					},
					"responses": map[string]any{"200": jsonOK},
				},
			},
			"/api/v1/webhook/plex": map[string]any{
				"post": map[string]any{
					"description": "Plex webhook endpoint (multipart payload or raw JSON).",
					"responses":   map[string]any{"204": map[string]any{"description": "Accepted"}},
				},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{
					"description": "SSE stream of scrobble outcomes.",
					"responses":   map[string]any{"200": map[string]any{"description": "event-stream"}},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
