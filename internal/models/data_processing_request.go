package models

import "time"

type RequestType string

const (
	AccessRequest        RequestType = "ACCESS_REQUEST"
	DeletionRequest      RequestType = "DELETION_REQUEST"
	RectificationRequest RequestType = "RECTIFICATION_REQUEST"
	PortabilityRequest   RequestType = "PORTABILITY_REQUEST"
)

func (t RequestType) Valid() bool {
	switch t {
	case AccessRequest, DeletionRequest, RectificationRequest, PortabilityRequest:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestProcessed RequestStatus = "PROCESSED"
	RequestRejected  RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s RequestStatus) Terminal() bool {
	return s == RequestProcessed || s == RequestRejected
}

// DataProcessingRequest is a GDPR data-subject request. Created by a public
// endpoint (a subject must not need an account to exercise their rights) and
// mutated exactly once by an admin-triggered process action.
type DataProcessingRequest struct {
	ID           string            `db:"id"`
	Email        string            `db:"email"`
	RequestType  RequestType       `db:"request_type"`
	Status       RequestStatus     `db:"status"`
	Metadata     map[string]string `db:"metadata"`
	ResponseData string            `db:"response_data"`
	ProcessedBy  string            `db:"processed_by"`
	ProcessedAt  *time.Time        `db:"processed_at"`
	CreatedAt    time.Time         `db:"created_at"`
}
