// Package search archives ended sessions into Elasticsearch so history
// dashboards can query them. Indexing is best-effort: failures are
// reported and the session stays safe in local/remote storage.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pradumanrathod/studytracker/internal/common/database"
	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/models"
)

type Indexer struct {
	es    *database.ElasticsearchClient
	index string
	log   logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:    es,
		index: index,
		log:   log.WithFields(map[string]interface{}{"component": "session-indexer", "index": index}),
	}
}

// sessionDocument is the archive shape: the wire session document plus
// the owning user for per-user queries.
type sessionDocument struct {
	UserID  string            `json:"userId"`
	Session models.SessionDoc `json:"session"`
}

// IndexSession writes one ended session into the archive, keyed by the
// session id so re-indexing is an overwrite, not a duplicate.
func (i *Indexer) IndexSession(ctx context.Context, uid string, session models.Session) error {
	payload, err := json.Marshal(sessionDocument{
		UserID:  uid,
		Session: models.EncodeSession(session),
	})
	if err != nil {
		return fmt.Errorf("marshal session document: %w", err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(payload),
		i.es.Client.Index.WithDocumentID(session.ID),
		i.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchIndexFailedError(session.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchIndexFailedError(session.ID, fmt.Errorf("index response: %s", res.Status()))
	}
	return nil
}
