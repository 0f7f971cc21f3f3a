package evaluator

import (
	"fmt"
	"time"
)

// defaultSuccessMessage is the fixed feedback emitted when the backend
// returned none. Kept in Portuguese: it is user-facing wire content.
const defaultSuccessMessage = "Áudio processado com sucesso"

// normalize maps a decoded backend payload into the canonical Result.
// When aliases is true the remote field aliases apply (predicted before
// transcription, feedback as the message source); the exec contract emits
// canonical names, so the alias fallback is skipped there.
func normalize(data map[string]any, aliases bool, now time.Time) Result {
	r := Result{
		Success:     true,
		Message:     defaultSuccessMessage,
		Errors:      []string{},
		Suggestions: []string{},
		Highlights:  map[string]any{},
		ProcessedAt: now,
	}

	if aliases {
		r.Transcription = firstString(data, "predicted", "transcription")
	} else {
		r.Transcription = firstString(data, "transcription")
	}
	if score, ok := data["score"].(float64); ok {
		r.Score = score
	}

	messageField := "message"
	if aliases {
		messageField = "feedback"
	}
	if msg := firstString(data, messageField); msg != "" {
		r.Message = msg
	}

	if raw, ok := data["match"]; ok {
		matched := truthy(raw)
		r.Match = &matched
	}
	r.Evaluation = firstString(data, "evaluation", "assessment")

	if errs := stringList(data["errors"]); errs != nil {
		r.Errors = errs
	}
	if sugg := stringList(data["suggestions"]); sugg != nil {
		r.Suggestions = sugg
	}
	if hl, ok := data["highlights"].(map[string]any); ok && hl != nil {
		r.Highlights = hl
	}
	return r
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out
}

// truthy coerces a present match field to boolean irrespective of the
// JSON type the backend chose for it.
func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}
