package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreConfigOpenAt(t *testing.T) {
	base := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	opens := base.Add(-2 * time.Hour)
	closes := base.Add(2 * time.Hour)

	tests := []struct {
		name   string
		config StoreConfig
		at     time.Time
		want   bool
	}{
		{"closed flag gates everything", StoreConfig{IsOpen: false, OpensAt: &opens, ClosesAt: &closes}, base, false},
		{"open with no window", StoreConfig{IsOpen: true}, base, true},
		{"open inside window", StoreConfig{IsOpen: true, OpensAt: &opens, ClosesAt: &closes}, base, true},
		{"open at window start", StoreConfig{IsOpen: true, OpensAt: &opens, ClosesAt: &closes}, opens, true},
		{"open at window end", StoreConfig{IsOpen: true, OpensAt: &opens, ClosesAt: &closes}, closes, true},
		{"before window", StoreConfig{IsOpen: true, OpensAt: &opens, ClosesAt: &closes}, opens.Add(-time.Minute), false},
		{"after window", StoreConfig{IsOpen: true, OpensAt: &opens, ClosesAt: &closes}, closes.Add(time.Minute), false},
		{"only opens_at set ignores window", StoreConfig{IsOpen: true, OpensAt: &opens}, opens.Add(-time.Hour), true},
		{"only closes_at set ignores window", StoreConfig{IsOpen: true, ClosesAt: &closes}, closes.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.OpenAt(tt.at))
		})
	}
}
