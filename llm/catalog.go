package llm

// ModelInfo describes a known model's capability flags.
type ModelInfo struct {
	ID         string
	Multimodal bool
	Reasoning  bool
}

// Models is the built-in capability catalog. Multimodal models accept image
// content parts; reasoning models take a completion-token budget instead of
// the max-tokens/temperature pair.
var Models = []ModelInfo{
	{ID: "gpt-4-vision-preview", Multimodal: true},
	{ID: "gpt-4o", Multimodal: true},
	{ID: "gpt-4o-mini", Multimodal: true},
	{ID: "claude-3-opus-20240229", Multimodal: true},
	{ID: "claude-3-sonnet-20240229", Multimodal: true},
	{ID: "claude-3-haiku-20240307", Multimodal: true},
	{ID: "o1", Reasoning: true},
	{ID: "o3-mini", Reasoning: true},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
	}
	return nil
}

// IsMultimodal reports whether a model accepts image input.
func IsMultimodal(modelID string) bool {
	info := GetModelInfo(modelID)
	return info != nil && info.Multimodal
}

// IsReasoning reports whether a model uses the completion-token-budget
// parameter family.
func IsReasoning(modelID string) bool {
	info := GetModelInfo(modelID)
	return info != nil && info.Reasoning
}
