package address

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIPv4(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    string
		wantErr bool
	}{
		"plain": {
			input: "192.0.2.1",
			want:  "192.0.2.1",
		},
		"trailing newline": {
			input: "192.0.2.1\n",
			want:  "192.0.2.1",
		},
		"empty": {
			input:   "",
			wantErr: true,
		},
		"ipv6": {
			input:   "2001:db8::1",
			wantErr: true,
		},
		"ipv4 mapped ipv6": {
			input:   "::ffff:192.0.2.1",
			wantErr: true,
		},
		"hostname": {
			input:   "example.com",
			wantErr: true,
		},
		"cidr": {
			input:   "192.0.2.1/24",
			wantErr: true,
		},
	}

	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			got, err := ValidateIPv4(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSourceFunc(t *testing.T) {
	var s Source = SourceFunc(func(ctx context.Context) (string, error) {
		return "", errors.New("offline")
	})
	_, err := s.FetchAddress(context.Background())
	assert.EqualError(t, err, "offline")
}
