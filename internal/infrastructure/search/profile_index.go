// Package search mirrors profile writes into Elasticsearch and queries them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// Mapping is the index mapping for profile documents.
const Mapping = `{
  "mappings": {
    "properties": {
      "uid":           {"type": "keyword"},
      "email":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "emailVerified": {"type": "boolean"},
      "displayName":   {"type": "text"},
      "indexedAt":     {"type": "date"}
    }
  }
}`

// IndexedProfileStore wraps a ProfileStore and indexes every successful write.
// Index failures are logged and never fail the write.
type IndexedProfileStore struct {
	inner  repo.ProfileStore
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewIndexedProfileStore(inner repo.ProfileStore, es *elasticsearch.Client, index string, logger *logrus.Logger) *IndexedProfileStore {
	return &IndexedProfileStore{inner: inner, es: es, index: index, logger: helpers.OrStandard(logger)}
}

var _ repo.ProfileStore = (*IndexedProfileStore)(nil)

func (s *IndexedProfileStore) Doc(path string) repo.DocumentRef {
	return &indexedDoc{DocumentRef: s.inner.Doc(path), store: s}
}

type indexedDoc struct {
	repo.DocumentRef
	store *IndexedProfileStore
}

func (d *indexedDoc) Set(ctx context.Context, p entity.UserProfile, opts repo.SetOptions) error {
	if err := d.DocumentRef.Set(ctx, p, opts); err != nil {
		return err
	}
	if err := d.store.indexProfile(ctx, p); err != nil {
		d.store.logger.WithError(err).WithField("uid", p.UID).Warn("es index failed")
	}
	return nil
}

type indexDoc struct {
	entity.UserProfile
	IndexedAt string `json:"indexedAt"`
}

func (s *IndexedProfileStore) indexProfile(ctx context.Context, p entity.UserProfile) error {
	b, err := json.Marshal(indexDoc{UserProfile: p, IndexedAt: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: s.index, DocumentID: p.UID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, s.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index response: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match query over email and display name.
func (s *IndexedProfileStore) Search(ctx context.Context, q string, size int) ([]entity.UserProfile, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "displayName"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := s.es.Search(
		s.es.Search.WithContext(c),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search response: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.UserProfile `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]entity.UserProfile, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
