package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "Valid date",
			input:    "2026-01-27",
			expected: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Surrounding spaces",
			input:    " 2026-03-15 ",
			expected: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "Invalid format",
			input:   "27-01-2026",
			wantErr: true,
		},
		{
			name:    "Invalid day",
			input:   "2026-01-32",
			wantErr: true,
		},
		{
			name:    "Empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("operation_date", tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, err.Error(), "operation_date")
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.expected.Equal(got))
		})
	}
}
