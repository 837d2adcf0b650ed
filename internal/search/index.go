// Package search keeps a full-text index of published videos.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/models"
)

type VideoIndex interface {
	Index(ctx context.Context, doc Document) error
	Remove(ctx context.Context, id uuid.UUID) error
	// Search returns the total hit count and the ids of the requested window, best match first.
	Search(ctx context.Context, q string, from, size int) (int64, []uuid.UUID, error)
}

type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

func DocumentOf(v *models.Video) Document {
	return Document{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		OwnerID:     v.OwnerID,
		IsPublished: v.IsPublished,
		CreatedAt:   v.CreatedAt,
	}
}

// SearchBody builds the multi_match query sent to Elasticsearch.
func SearchBody(q string, from, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}
}

type ESIndex struct {
	ES    *elasticsearch.Client
	Name  string
}

// Index stores doc, or deletes it when the video is not published.
func (x *ESIndex) Index(ctx context.Context, doc Document) error {
	if !doc.IsPublished {
		return x.Remove(ctx, doc.ID)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode document: %w", err)
	}
	res, err := x.ES.Index(
		x.Name,
		bytes.NewReader(body),
		x.ES.Index.WithContext(ctx),
		x.ES.Index.WithDocumentID(doc.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("search: index %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

func (x *ESIndex) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := x.ES.Delete(x.Name, id.String(), x.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

func (x *ESIndex) Search(ctx context.Context, q string, from, size int) (int64, []uuid.UUID, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(SearchBody(q, from, size)); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Name),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}
	return decodeHits(res.Body)
}

func decodeHits(body io.Reader) (int64, []uuid.UUID, error) {
	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("search: %s returned %s: %s", op, status, msg)
}
