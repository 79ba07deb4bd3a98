package domain

import (
	"encoding/json"
	"fmt"
)

// VideoOperation enumerates the supported video processing operations.
type VideoOperation string

const (
	VideoOpEnhance       VideoOperation = "enhance"
	VideoOpStyleTransfer VideoOperation = "style_transfer"
	VideoOpStabilize     VideoOperation = "stabilize"
)

// BatchOperation enumerates the image operations accepted by batch requests.
type BatchOperation string

const (
	BatchOpEnhance       BatchOperation = "enhance"
	BatchOpStyleTransfer BatchOperation = "style_transfer"
)

// EnhanceParams carries the tunables for image enhancement.
type EnhanceParams struct {
	Strength        float64 `json:"strength"`
	PreserveDetails bool    `json:"preserve_details"`
	EnhanceColors   bool    `json:"enhance_colors"`
	ReduceNoise     bool    `json:"reduce_noise"`
}

func DefaultEnhanceParams() EnhanceParams {
	return EnhanceParams{Strength: 0.8, PreserveDetails: true, EnhanceColors: true, ReduceNoise: true}
}

func (p EnhanceParams) Validate() error {
	if p.Strength < 0.1 || p.Strength > 1.0 {
		return ValidationError("strength must be between 0.1 and 1.0")
	}
	return nil
}

// Map returns the parameter set as a flat map for cache keying and the
// upstream payload.
func (p EnhanceParams) Map() map[string]any {
	return map[string]any{
		"strength":         p.Strength,
		"preserve_details": p.PreserveDetails,
		"enhance_colors":   p.EnhanceColors,
		"reduce_noise":     p.ReduceNoise,
	}
}

// StyleTransferParams carries the tunables for artistic style transfer.
type StyleTransferParams struct {
	StyleStrength     float64 `json:"style_strength"`
	PreserveStructure bool    `json:"preserve_structure"`
	StyleReference    string  `json:"style_reference,omitempty"`
}

func DefaultStyleTransferParams() StyleTransferParams {
	return StyleTransferParams{StyleStrength: 0.8, PreserveStructure: true}
}

func (p StyleTransferParams) Validate() error {
	if p.StyleStrength < 0.1 || p.StyleStrength > 1.0 {
		return ValidationError("style_strength must be between 0.1 and 1.0")
	}
	return nil
}

func (p StyleTransferParams) Map() map[string]any {
	return map[string]any{
		"style_strength":     p.StyleStrength,
		"preserve_structure": p.PreserveStructure,
		"style_reference":    p.StyleReference,
	}
}

// GenerateParams carries the inputs for text-to-image generation.
type GenerateParams struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              *int    `json:"seed,omitempty"`
}

func DefaultGenerateParams() GenerateParams {
	return GenerateParams{Width: 512, Height: 512, NumInferenceSteps: 20, GuidanceScale: 7.5}
}

func (p GenerateParams) Validate() error {
	if len(p.Prompt) < 1 || len(p.Prompt) > 1000 {
		return ValidationError("prompt must be between 1 and 1000 characters")
	}
	if len(p.NegativePrompt) > 1000 {
		return ValidationError("negative_prompt must be at most 1000 characters")
	}
	for _, dim := range []struct {
		name  string
		value int
	}{{"width", p.Width}, {"height", p.Height}} {
		if dim.value < 128 || dim.value > 2048 {
			return ValidationError(fmt.Sprintf("%s must be between 128 and 2048", dim.name))
		}
		if dim.value%8 != 0 {
			return ValidationError(fmt.Sprintf("%s must be a multiple of 8", dim.name))
		}
	}
	if p.NumInferenceSteps < 1 || p.NumInferenceSteps > 100 {
		return ValidationError("num_inference_steps must be between 1 and 100")
	}
	if p.GuidanceScale < 1.0 || p.GuidanceScale > 20.0 {
		return ValidationError("guidance_scale must be between 1.0 and 20.0")
	}
	if p.Seed != nil && *p.Seed < 0 {
		return ValidationError("seed must be non-negative")
	}
	return nil
}

func (p GenerateParams) Map() map[string]any {
	m := map[string]any{
		"prompt":              p.Prompt,
		"negative_prompt":     p.NegativePrompt,
		"width":               p.Width,
		"height":              p.Height,
		"num_inference_steps": p.NumInferenceSteps,
		"guidance_scale":      p.GuidanceScale,
	}
	if p.Seed != nil {
		m["seed"] = *p.Seed
	}
	return m
}

// VideoParams carries the tunables for video processing operations.
type VideoParams struct {
	Operation  VideoOperation `json:"operation"`
	Quality    string         `json:"quality"`
	FPS        *int           `json:"fps,omitempty"`
	Resolution string         `json:"resolution,omitempty"`
}

func DefaultVideoParams(op VideoOperation) VideoParams {
	return VideoParams{Operation: op, Quality: "high"}
}

func (p VideoParams) Validate() error {
	switch p.Operation {
	case VideoOpEnhance, VideoOpStyleTransfer, VideoOpStabilize:
	default:
		return ValidationError(fmt.Sprintf("unsupported video operation: %s", p.Operation))
	}
	switch p.Quality {
	case "low", "medium", "high":
	default:
		return ValidationError("quality must be one of low, medium, high")
	}
	if p.FPS != nil && (*p.FPS < 1 || *p.FPS > 60) {
		return ValidationError("fps must be between 1 and 60")
	}
	if p.Resolution != "" {
		switch p.Resolution {
		case "480p", "720p", "1080p", "4k":
		default:
			return ValidationError("resolution must be one of 480p, 720p, 1080p, 4k")
		}
	}
	return nil
}

func (p VideoParams) Map() map[string]any {
	m := map[string]any{
		"operation": string(p.Operation),
		"quality":   p.Quality,
	}
	if p.FPS != nil {
		m["fps"] = *p.FPS
	}
	if p.Resolution != "" {
		m["resolution"] = p.Resolution
	}
	return m
}

// BatchParams describes the shared operation applied to every file in a batch.
// Parameters is the raw parameter bag; it is decoded into the typed parameter
// struct for the chosen operation per item.
type BatchParams struct {
	Operation  BatchOperation `json:"operation"`
	Parameters map[string]any `json:"parameters"`
}

func (p BatchParams) Validate() error {
	switch p.Operation {
	case BatchOpEnhance, BatchOpStyleTransfer:
	default:
		return ValidationError(fmt.Sprintf("unsupported operation: %s", p.Operation))
	}
	return nil
}

// EnhanceFromMap decodes a raw parameter bag into EnhanceParams on top of the
// defaults, then validates the result.
func EnhanceFromMap(raw map[string]any) (EnhanceParams, error) {
	p := DefaultEnhanceParams()
	if err := decodeInto(raw, &p); err != nil {
		return p, err
	}
	return p, p.Validate()
}

// StyleTransferFromMap decodes a raw parameter bag into StyleTransferParams.
func StyleTransferFromMap(raw map[string]any) (StyleTransferParams, error) {
	p := DefaultStyleTransferParams()
	if err := decodeInto(raw, &p); err != nil {
		return p, err
	}
	return p, p.Validate()
}

func decodeInto(raw map[string]any, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ValidationError("invalid parameters")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return ValidationError("invalid parameters: " + err.Error())
	}
	return nil
}
