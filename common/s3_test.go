package common

import (
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no such key", &s3types.NoSuchKey{}, true},
		{"wrapped no such key", fmt.Errorf("get: %w", &s3types.NoSuchKey{}), true},
		{"api not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"api access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsNotFound(c.err); got != c.want {
				t.Fatalf("IsNotFound(%v) = %v; want %v", c.err, got, c.want)
			}
		})
	}
}
