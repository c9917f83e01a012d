package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/stepwise/internal/record"
)

// marshalTally converts a tally summary to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so the stored bytes match what the event ID
// was computed over. A nil tally (every event except test_finished) is
// stored as the empty string.
func marshalTally(t *record.TallySummary) (string, error) {
	if t == nil {
		return "", nil
	}

	failures := make([]any, len(t.Failures))
	for i, f := range t.Failures {
		failures[i] = f
	}
	data, err := record.MarshalCanonical(map[string]any{
		"executed": int64(t.Executed),
		"ignored":  int64(t.Ignored),
		"failures": failures,
	})
	if err != nil {
		return "", fmt.Errorf("marshal tally: %w", err)
	}
	return string(data), nil
}

// unmarshalTally parses stored tally TEXT back into a summary.
// Empty TEXT means the event carried no tally.
func unmarshalTally(data string) (*record.TallySummary, error) {
	if data == "" {
		return nil, nil
	}
	var t record.TallySummary
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("unmarshal tally: %w", err)
	}
	return &t, nil
}
