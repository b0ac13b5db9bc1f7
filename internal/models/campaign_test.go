package models

import (
	"testing"
	"time"
)

func TestCampaignStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	c := &Campaign{StartDate: start, EndDate: end}

	tests := []struct {
		name     string
		now      time.Time
		expected string
	}{
		{"before start", start.Add(-time.Minute), CampaignStatusUpcoming},
		{"exactly at start", start, CampaignStatusActive},
		{"mid-flight", start.Add(time.Hour), CampaignStatusActive},
		{"exactly at end", end, CampaignStatusEnded},
		{"after end", end.Add(time.Hour), CampaignStatusEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.StatusAt(tt.now)
			if got != tt.expected {
				t.Errorf("StatusAt(%v) = %q, want %q", tt.now, got, tt.expected)
			}
		})
	}
}

func TestCampaignEndedAt(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	c := &Campaign{StartDate: end.Add(-time.Hour), EndDate: end}

	if c.EndedAt(end.Add(-time.Second)) {
		t.Error("campaign should not be ended before end date")
	}
	if !c.EndedAt(end) {
		t.Error("campaign should be ended exactly at end date")
	}
	if !c.EndedAt(end.Add(time.Second)) {
		t.Error("campaign should be ended after end date")
	}
}
