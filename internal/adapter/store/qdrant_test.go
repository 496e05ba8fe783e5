package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docqa/internal/domain"
)

func TestQdrantError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"server down", status.Error(codes.Unavailable, "connection refused"), true},
		{"timeout", status.Error(codes.DeadlineExceeded, "deadline exceeded"), true},
		{"missing collection", status.Error(codes.NotFound, "collection not found"), false},
		{"bad request", status.Error(codes.InvalidArgument, "wrong vector size"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := qdrantError("query knowledge_base", tt.err)

			var se *domain.ServiceError
			assert.True(t, errors.As(err, &se))
			assert.Equal(t, "qdrant", se.Service)
			assert.Equal(t, tt.unavailable, errors.Is(err, domain.ErrServiceUnavailable))
			assert.Equal(t, status.Code(tt.err), status.Code(err), "grpc status is kept")
			assert.Contains(t, err.Error(), "query knowledge_base")
		})
	}
}
