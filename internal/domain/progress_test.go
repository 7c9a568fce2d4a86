package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Phase{
		{PhaseIdle, PhaseContent},
		{PhaseContent, PhaseImages},
		{PhaseImages, PhaseFinalizing},
		{PhaseFinalizing, PhaseCompleted},
		{PhaseIdle, PhaseError},
		{PhaseContent, PhaseError},
		{PhaseImages, PhaseError},
		{PhaseFinalizing, PhaseError},
	}
	for _, tc := range allowed {
		if !CanTransition(tc[0], tc[1]) {
			t.Fatalf("%s -> %s should be allowed", tc[0], tc[1])
		}
	}

	rejected := [][2]Phase{
		{PhaseIdle, PhaseImages},
		{PhaseContent, PhaseContent},
		{PhaseImages, PhaseContent},
		{PhaseFinalizing, PhaseImages},
		{PhaseCompleted, PhaseError},
		{PhaseError, PhaseContent},
		{PhaseCompleted, PhaseContent},
	}
	for _, tc := range rejected {
		if CanTransition(tc[0], tc[1]) {
			t.Fatalf("%s -> %s should be rejected", tc[0], tc[1])
		}
	}
}

func TestProgressCloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	p := NewProgress()
	p.StartedAt = &now
	p.AllImages = []ImageTask{{ID: "a", Status: ImageStatusPending, StartedAt: &now}}
	p.CurrentImage = &p.AllImages[0]

	c := p.Clone()
	c.AllImages[0].Status = ImageStatusCompleted
	*c.StartedAt = now.Add(time.Hour)
	c.CurrentImage.ID = "b"

	if p.AllImages[0].Status != ImageStatusPending {
		t.Fatalf("clone mutated original task status")
	}
	if !p.StartedAt.Equal(now) {
		t.Fatalf("clone mutated original timestamp")
	}
	if p.CurrentImage.ID != "a" {
		t.Fatalf("clone mutated original current image")
	}
}
