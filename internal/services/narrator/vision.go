package narrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const handCountPrompt = `Look at this image of players sitting or standing together.
Count the number of raised hands. A raised hand is any hand clearly held above shoulder level. Partial raises or hands at ear level count.

Return ONLY a JSON object with no markdown:
{"hand_count": <integer>, "confidence": "high" or "medium" or "low"}

If the image is unclear or you cannot determine hand count reliably, return {"hand_count": 0, "confidence": "low"}`

const handCountMaxTokens = 64

// HandCount is the parsed result of one camera vote frame. Confidence
// is always one of high, medium, low.
type HandCount struct {
	Count      int    `json:"hand_count"`
	Confidence string `json:"confidence"`
}

func lowConfidence() *HandCount {
	return &HandCount{Count: 0, Confidence: "low"}
}

// CountRaisedHands counts raised hands in a base64-encoded JPEG frame.
// Every failure mode degrades to zero hands at low confidence so an
// in-person vote never crashes on a bad photo.
func (m *Manager) CountRaisedHands(ctx context.Context, imageB64 string) *HandCount {
	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil || len(raw) == 0 {
		log.Printf("[vision] Rejecting camera frame: invalid base64 payload (%v)", err)
		return lowConfidence()
	}
	if m.model == nil {
		log.Printf("[vision] No model configured, cannot count hands")
		return lowConfidence()
	}

	msgs := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/jpeg", raw),
				llms.TextPart(handCountPrompt),
			},
		},
	}

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()
	resp, err := m.model.GenerateContent(genCtx, msgs,
		llms.WithTemperature(0),
		llms.WithMaxTokens(handCountMaxTokens),
	)
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("[vision] Hand count generation failed: %v", err)
		return lowConfidence()
	}
	return parseHandCount(resp.Choices[0].Content)
}

func parseHandCount(reply string) *HandCount {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out HandCount
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		log.Printf("[vision] Unparseable hand count reply %q: %v", reply, err)
		return lowConfidence()
	}
	if out.Count < 0 {
		out.Count = 0
	}
	switch out.Confidence {
	case "high", "medium", "low":
	default:
		out.Confidence = "low"
	}
	return &out
}
