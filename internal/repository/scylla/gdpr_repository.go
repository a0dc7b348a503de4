package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type dataRequestRepository struct {
	client *ScyllaClient
}

func NewDataRequestRepository(client *ScyllaClient) DataRequestRepository {
	return &dataRequestRepository{client: client}
}

// Create inserts a submitted data-subject request. No audit entry here, the
// submitter is anonymous and the trail only records privileged mutations.
func (r *dataRequestRepository) Create(ctx context.Context, bucket int, request *models.DataProcessingRequest) error {
	query := r.client.Prepared.CreateDataRequest.Bind(
		bucket, request.ID, request.Email, request.RequestType, request.Status,
		request.Metadata, request.ResponseData, request.ProcessedBy,
		request.ProcessedAt, request.CreatedAt).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create data processing request",
			zap.String("request_id", request.ID),
			zap.String("request_type", string(request.RequestType)),
			zap.Error(err))
		return fmt.Errorf("failed to create data processing request: %w", err)
	}

	util.Info("Data processing request submitted",
		zap.String("request_id", request.ID),
		zap.String("request_type", string(request.RequestType)))

	return nil
}

func (r *dataRequestRepository) GetByID(ctx context.Context, bucket int, id string) (*models.DataProcessingRequest, error) {
	request := &models.DataProcessingRequest{}
	var rowBucket int

	query := r.client.Prepared.GetDataRequest.Bind(bucket, id).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&rowBucket, &request.ID, &request.Email, &request.RequestType, &request.Status,
		&request.Metadata, &request.ResponseData, &request.ProcessedBy,
		&request.ProcessedAt, &request.CreatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("data processing request not found with ID %s: %w", id, gocql.ErrNotFound)
		}
		util.Error("Failed to get data processing request",
			zap.String("request_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get data processing request: %w", err)
	}

	return request, nil
}

// Resolve applies the single permitted terminal transition together with its
// audit entry in one logged batch.
func (r *dataRequestRepository) Resolve(ctx context.Context, bucket int, request *models.DataProcessingRequest, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.ResolveDataRequest.Statement(),
		request.Status, request.ResponseData, request.ProcessedBy,
		request.ProcessedAt, bucket, request.ID)

	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to resolve data processing request",
			zap.String("request_id", request.ID),
			zap.String("status", string(request.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to resolve data processing request: %w", err)
	}

	util.Info("Data processing request resolved",
		zap.String("request_id", request.ID),
		zap.String("status", string(request.Status)),
		zap.String("processed_by", request.ProcessedBy))

	return nil
}

func (r *dataRequestRepository) List(ctx context.Context, buckets []int) ([]*models.DataProcessingRequest, error) {
	iter := r.client.Prepared.ListDataRequests.Bind(buckets).WithContext(ctx).Iter()

	var requests []*models.DataProcessingRequest
	var rowBucket int
	for {
		request := &models.DataProcessingRequest{}
		if !iter.Scan(&rowBucket, &request.ID, &request.Email, &request.RequestType, &request.Status,
			&request.Metadata, &request.ResponseData, &request.ProcessedBy,
			&request.ProcessedAt, &request.CreatedAt) {
			break
		}
		requests = append(requests, request)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list data processing requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list data processing requests: %w", err)
	}

	return requests, nil
}
