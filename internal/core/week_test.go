package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		date string
		want string
	}{
		{"monday maps to itself", "2025-03-10", "2025-03-10"},
		{"wednesday rolls back two days", "2025-03-12", "2025-03-10"},
		{"saturday rolls back five days", "2025-03-15", "2025-03-10"},
		{"sunday rolls back six days", "2025-03-16", "2025-03-10"},
		{"next monday starts a new week", "2025-03-17", "2025-03-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, WeekStart(d).String())
		})
	}
}

func TestWeekEnd(t *testing.T) {
	d, _ := ParseDate("2025-03-12")
	assert.Equal(t, "2025-03-16", WeekEnd(d).String())
}
