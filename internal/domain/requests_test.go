package domain

import (
	"strings"
	"testing"
)

func TestEnhanceParamsValidate(t *testing.T) {
	tests := []struct {
		name     string
		strength float64
		wantErr  bool
	}{
		{"default", 0.8, false},
		{"lower bound", 0.1, false},
		{"upper bound", 1.0, false},
		{"too weak", 0.05, true},
		{"too strong", 1.1, true},
		{"zero", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultEnhanceParams()
			p.Strength = tc.strength
			err := p.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestGenerateParamsValidateDimensions(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		wantErr string
	}{
		{"defaults", 512, 512, ""},
		{"min", 128, 128, ""},
		{"max", 2048, 2048, ""},
		{"below min", 120, 512, "between 128 and 2048"},
		{"above max", 512, 2056, "between 128 and 2048"},
		{"not multiple of 8", 130, 512, "multiple of 8"},
		{"height not multiple of 8", 512, 513, "multiple of 8"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultGenerateParams()
			p.Prompt = "a lake at dawn"
			p.Width = tc.width
			p.Height = tc.height
			err := p.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestGenerateParamsValidatePrompt(t *testing.T) {
	p := DefaultGenerateParams()
	if err := p.Validate(); err == nil {
		t.Fatal("empty prompt should fail validation")
	}
	p.Prompt = strings.Repeat("x", 1001)
	if err := p.Validate(); err == nil {
		t.Fatal("overlong prompt should fail validation")
	}
	p.Prompt = "ok"
	seed := -1
	p.Seed = &seed
	if err := p.Validate(); err == nil {
		t.Fatal("negative seed should fail validation")
	}
}

func TestVideoParamsValidate(t *testing.T) {
	p := DefaultVideoParams(VideoOpEnhance)
	if err := p.Validate(); err != nil {
		t.Fatalf("default params: %v", err)
	}
	p.Operation = "transcode"
	if err := p.Validate(); err == nil {
		t.Fatal("unknown operation should fail")
	}
	p = DefaultVideoParams(VideoOpStabilize)
	p.Quality = "ultra"
	if err := p.Validate(); err == nil {
		t.Fatal("unknown quality should fail")
	}
	p = DefaultVideoParams(VideoOpStyleTransfer)
	fps := 61
	p.FPS = &fps
	if err := p.Validate(); err == nil {
		t.Fatal("fps out of range should fail")
	}
	p.FPS = nil
	p.Resolution = "8k"
	if err := p.Validate(); err == nil {
		t.Fatal("unknown resolution should fail")
	}
}

func TestEnhanceFromMapAppliesDefaultsAndOverrides(t *testing.T) {
	p, err := EnhanceFromMap(map[string]any{"strength": 0.5})
	if err != nil {
		t.Fatalf("EnhanceFromMap: %v", err)
	}
	if p.Strength != 0.5 {
		t.Fatalf("strength = %v, want 0.5", p.Strength)
	}
	if !p.PreserveDetails || !p.EnhanceColors || !p.ReduceNoise {
		t.Fatalf("defaults not preserved: %+v", p)
	}

	if _, err := EnhanceFromMap(map[string]any{"strength": 5.0}); err == nil {
		t.Fatal("out-of-range override should fail validation")
	}
}

func TestAsAPIError(t *testing.T) {
	err := ValidationError("bad input")
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatal("expected APIError")
	}
	if apiErr.Code != CodeValidation || apiErr.Status != 400 {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if _, ok := AsAPIError(ErrFileNotFound); ok {
		t.Fatal("plain error should not unwrap to APIError")
	}
}
