package es

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"secops-service/internal/client"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/util"
)

// ThreatIndex mirrors threat detections into Elasticsearch for free-text
// search. Indexing is best-effort: Scylla is the source of truth and a failed
// index write never fails the recording path.
type ThreatIndex struct {
	client *client.ESClient
	index  string
}

func NewThreatIndex(esClient *client.ESClient, cfg *config.Config) *ThreatIndex {
	return &ThreatIndex{
		client: esClient,
		index:  cfg.Elasticsearch.ThreatIndex,
	}
}

type threatDocument struct {
	ID            string            `json:"id"`
	ThreatType    string            `json:"threat_type"`
	Severity      string            `json:"severity"`
	Source        string            `json:"source"`
	Description   string            `json:"description"`
	Indicators    map[string]string `json:"indicators"`
	Status        string            `json:"status"`
	FirstDetected string            `json:"first_detected"`
}

type searchHits struct {
	Hits struct {
		Hits []struct {
			Source threatDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (t *ThreatIndex) Index(ctx context.Context, threat *models.ThreatDetection) error {
	doc := threatDocument{
		ID:            threat.ID,
		ThreatType:    threat.ThreatType,
		Severity:      string(threat.Severity),
		Source:        threat.Source,
		Description:   threat.Description,
		Indicators:    threat.Indicators,
		Status:        string(threat.Status),
		FirstDetected: threat.FirstDetected.UTC().Format("2006-01-02T15:04:05Z"),
	}

	res, err := t.client.IndexDocument(ctx, t.index, threat.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to index threat: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index threat: %s", res.String())
	}

	util.Debug("Threat indexed for search", zap.String("threat_id", threat.ID))
	return nil
}

// Search runs a free-text match over type, source and description, optionally
// narrowed by severity and status. Returns matching threat IDs with their
// indexed fields.
func (t *ThreatIndex) Search(ctx context.Context, text string, severity, status string, limit int) ([]*models.ThreatDetection, error) {
	must := []map[string]interface{}{}
	if text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"threat_type", "source", "description"},
			},
		})
	}

	filter := []map[string]interface{}{}
	if severity != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"severity": severity},
		})
	}
	if status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []map[string]interface{}{
			{"first_detected": map[string]interface{}{"order": "desc"}},
		},
	}

	res, err := t.client.Search(ctx, t.index, query)
	if err != nil {
		return nil, fmt.Errorf("threat search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("threat search failed: %s", res.String())
	}

	var hits searchHits
	if err := t.client.ParseResponse(res, &hits); err != nil {
		return nil, fmt.Errorf("failed to parse threat search response: %w", err)
	}

	threats := make([]*models.ThreatDetection, 0, len(hits.Hits.Hits))
	for _, hit := range hits.Hits.Hits {
		doc := hit.Source
		threats = append(threats, &models.ThreatDetection{
			ID:          doc.ID,
			ThreatType:  doc.ThreatType,
			Severity:    models.ThreatSeverity(doc.Severity),
			Source:      doc.Source,
			Description: doc.Description,
			Indicators:  doc.Indicators,
			Status:      models.ThreatStatus(doc.Status),
		})
	}

	return threats, nil
}
