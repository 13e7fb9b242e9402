package core

import (
	"testing"
)

func TestSourceRefFromText(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ref",
			content: "Added ML prediction endpoint",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer commit message that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref1 := SourceRefFromText(tt.content)
			ref2 := SourceRefFromText(tt.content)

			if ref1 != ref2 {
				t.Errorf("SourceRefFromText() produced different refs for same content: %s vs %s", ref1, ref2)
			}
			if len(ref1) != 32 {
				t.Errorf("SourceRefFromText() ref length = %d, want 32", len(ref1))
			}
		})
	}
}

func TestSourceRefFromText_Different(t *testing.T) {
	ref1 := SourceRefFromText("content1")
	ref2 := SourceRefFromText("content2")

	if ref1 == ref2 {
		t.Errorf("SourceRefFromText() produced same ref for different content")
	}
}

func TestNewJobProgress(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		withVector  int
		wantPercent float64
		wantMissing int
		wantReady   bool
	}{
		{
			name:        "empty owner reports zero percent not NaN",
			total:       0,
			withVector:  0,
			wantPercent: 0,
			wantMissing: 0,
			wantReady:   false,
		},
		{
			name:        "halfway",
			total:       100,
			withVector:  50,
			wantPercent: 50,
			wantMissing: 50,
			wantReady:   true,
		},
		{
			name:        "complete",
			total:       120,
			withVector:  120,
			wantPercent: 100,
			wantMissing: 0,
			wantReady:   true,
		},
		{
			name:        "single embedded record is ready",
			total:       10,
			withVector:  1,
			wantPercent: 10,
			wantMissing: 9,
			wantReady:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewJobProgress(tt.total, tt.withVector)

			if p.PercentComplete != tt.wantPercent {
				t.Errorf("PercentComplete = %f, want %f", p.PercentComplete, tt.wantPercent)
			}
			if p.RecordsWithoutVector != tt.wantMissing {
				t.Errorf("RecordsWithoutVector = %d, want %d", p.RecordsWithoutVector, tt.wantMissing)
			}
			if p.ReadyForSearch != tt.wantReady {
				t.Errorf("ReadyForSearch = %v, want %v", p.ReadyForSearch, tt.wantReady)
			}
		})
	}
}
