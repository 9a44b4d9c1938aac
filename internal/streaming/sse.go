package streaming

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteSSE encodes e as one Server-Sent Events frame.
func WriteSSE(w io.Writer, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return err
}
