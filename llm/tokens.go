package llm

import (
	"encoding/json"
	"math"

	"github.com/pkoukk/tiktoken-go"

	"github.com/courtland/gambit/schema"
)

// Token accounting constants. These reproduce the provider's documented
// accounting scheme; changing them breaks budget parity.
const (
	BaseMessageTokens = 4
	FormatTokens      = 2

	LowDetailImageTokens = 85
	HighDetailTileTokens = 170

	maxImageDimension         = 2048
	highDetailTargetShortSide = 768
	tileSize                  = 512

	mediumDetailDefaultTokens = 1024
)

// Encoding turns text into token ids. It is the narrow slice of the
// tokenizer contract the counter needs; tests inject a deterministic fake.
type Encoding interface {
	Encode(text string) []int
}

type tiktokenEncoding struct {
	enc *tiktoken.Tiktoken
}

func (e tiktokenEncoding) Encode(text string) []int {
	return e.enc.Encode(text, nil, nil)
}

// EncodingForModel returns the tokenizer encoding for a model, falling back
// to cl100k_base when the model-specific encoding is unavailable.
func EncodingForModel(model string) Encoding {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil
		}
	}
	return tiktokenEncoding{enc: enc}
}

// TokenCounter estimates the token cost of messages, content parts, and
// images for context-budget enforcement. All methods are pure.
type TokenCounter struct {
	encoding Encoding
}

// NewTokenCounter creates a counter over the given encoding.
func NewTokenCounter(encoding Encoding) *TokenCounter {
	return &TokenCounter{encoding: encoding}
}

// CountText returns the tokenizer-encoded length of a string.
func (c *TokenCounter) CountText(text string) int {
	if text == "" || c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text))
}

// CountImage estimates the token cost of one image. Low detail is a fixed
// cost. High and medium detail with known dimensions are priced by scaling
// the image (longest side clamped to 2048, shorter side scaled to 768) and
// tiling it into 512x512 blocks. Without dimensions, medium falls back to a
// fixed estimate and high to the cost of a default 1024x2024 image.
func (c *TokenCounter) CountImage(detail string, width, height int) int {
	if detail == "low" {
		return LowDetailImageTokens
	}
	if (detail == "high" || detail == "medium") && width > 0 && height > 0 {
		return c.highDetailTokens(width, height)
	}
	if detail == "high" {
		return c.highDetailTokens(1024, 2024)
	}
	return mediumDetailDefaultTokens
}

func (c *TokenCounter) highDetailTokens(width, height int) int {
	// Clamp the longest side to 2048, preserving aspect ratio.
	if width > maxImageDimension || height > maxImageDimension {
		scale := float64(maxImageDimension) / math.Max(float64(width), float64(height))
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
	}

	// Scale so the shorter side is 768.
	scale := float64(highDetailTargetShortSide) / math.Min(float64(width), float64(height))
	width = int(float64(width) * scale)
	height = int(float64(height) * scale)

	tilesX := int(math.Ceil(float64(width) / float64(tileSize)))
	tilesY := int(math.Ceil(float64(height) / float64(tileSize)))
	return tilesX*tilesY*HighDetailTileTokens + LowDetailImageTokens
}

// CountContent prices message content: a plain string, or a sequence of
// text/image parts.
func (c *TokenCounter) CountContent(content any) int {
	switch v := content.(type) {
	case nil:
		return 0
	case string:
		return c.CountText(v)
	case []any:
		total := 0
		for _, part := range v {
			total += c.countPart(part)
		}
		return total
	case []map[string]any:
		total := 0
		for _, part := range v {
			total += c.countPart(part)
		}
		return total
	default:
		return 0
	}
}

func (c *TokenCounter) countPart(part any) int {
	m, ok := part.(map[string]any)
	if !ok {
		if s, ok := part.(string); ok {
			return c.CountText(s)
		}
		return 0
	}
	switch m["type"] {
	case "text":
		if s, ok := m["text"].(string); ok {
			return c.CountText(s)
		}
	case "image_url":
		detail := "medium"
		width, height := 0, 0
		if img, ok := m["image_url"].(map[string]any); ok {
			if d, ok := img["detail"].(string); ok && d != "" {
				detail = d
			}
		}
		if dims, ok := m["dimensions"].([]int); ok && len(dims) == 2 {
			width, height = dims[0], dims[1]
		}
		return c.CountImage(detail, width, height)
	}
	return 0
}

// CountToolCalls prices the tool calls attached to a message.
func (c *TokenCounter) CountToolCalls(calls []schema.ToolCall) int {
	total := 0
	for _, call := range calls {
		total += c.CountText(call.Function.Name)
		total += c.CountText(call.Function.Arguments)
	}
	return total
}

// CountMessages prices a batch of message records: a fixed format overhead
// plus a per-message base cost and the cost of every present field.
func (c *TokenCounter) CountMessages(records []map[string]any) int {
	total := FormatTokens
	for _, rec := range records {
		tokens := BaseMessageTokens
		if role, ok := rec["role"].(string); ok {
			tokens += c.CountText(role)
		}
		tokens += c.CountContent(rec["content"])
		if calls, ok := rec["tool_calls"].([]schema.ToolCall); ok {
			tokens += c.CountToolCalls(calls)
		}
		if name, ok := rec["name"].(string); ok {
			tokens += c.CountText(name)
		}
		if id, ok := rec["tool_call_id"].(string); ok {
			tokens += c.CountText(id)
		}
		total += tokens
	}
	return total
}

// CountToolDescriptors prices serialized tool descriptors for ask-with-tools
// requests.
func (c *TokenCounter) CountToolDescriptors(tools []map[string]any) int {
	total := 0
	for _, t := range tools {
		raw, err := json.Marshal(t)
		if err != nil {
			continue
		}
		total += c.CountText(string(raw))
	}
	return total
}
