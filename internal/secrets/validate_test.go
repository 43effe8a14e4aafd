package secrets

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name      string
		required  map[string]string
		wantEmpty []string
	}{
		{"all present", map[string]string{"REDIS_ADDR": "cache:6379", "FETCH_ORIGIN": "https://getindevice.com"}, nil},
		{"nothing required", nil, nil},
		{"one empty", map[string]string{"REDIS_ADDR": "", "FETCH_ORIGIN": "https://getindevice.com"}, []string{"REDIS_ADDR"}},
		{"blank counts as empty", map[string]string{"REDIS_ADDR": "  "}, []string{"REDIS_ADDR"}},
		{"sorted", map[string]string{"REDIS_ADDR": "", "FETCH_ORIGIN": ""}, []string{"FETCH_ORIGIN", "REDIS_ADDR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired(tt.required)
			if tt.wantEmpty == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(verr.Empty, tt.wantEmpty) {
				t.Errorf("Empty = %v, want %v", verr.Empty, tt.wantEmpty)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Empty: []string{"FETCH_ORIGIN", "REDIS_ADDR"}}
	want := "empty values for required environment variables: FETCH_ORIGIN, REDIS_ADDR"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
