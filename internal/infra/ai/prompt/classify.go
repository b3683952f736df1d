package prompt

import (
	"fmt"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// MaxReasonWords bounds the reason the model is asked for.
const MaxReasonWords = 30

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a forensic media analyst. You decide whether a media file was produced by a generative AI model.
You must produce one valid JSON object only (no markdown, no commentary, no code fences) that follows this schema:
{
  "label": "AI Generated" | "Not AI Generated",
  "confidence": <number between 0 and 1>,
  "reason": "<string, at most 30 words>"
}`
}

// GetUserPrompt builds the per-request instructions around the extracted features.
func GetUserPrompt(kind media.Kind, featureSummary, fileRef string) string {
	analyst, subject := "visual content", "image"
	switch kind {
	case media.KindVideo:
		subject = "video"
	case media.KindAudio:
		analyst, subject = "audio", "audio clip"
	}
	ref := ""
	if fileRef != "" {
		ref = fmt.Sprintf(" (uploaded file id: %s)", fileRef)
	}
	return fmt.Sprintf(`You are an expert %s analyst. Determine whether the provided %s is 'AI Generated' or 'Not AI Generated'.

You are given:
- The %s file itself%s.
- A summary of its extracted signal features: %s

Instructions:
1. Carefully analyze the %s and the provided features.
2. Decide whether it is AI Generated or Not AI Generated.
3. Estimate your confidence score between 0 and 1.
4. Provide a concise reason (at most %d words) supporting your classification.

Return only the JSON object.`, analyst, subject, subject, ref, featureSummary, subject, MaxReasonWords)
}
