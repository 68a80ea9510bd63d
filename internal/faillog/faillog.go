// Package faillog records inputs the pipeline could not parse, for
// later review. Rows are appended to a CSV file so a failed record is
// never silently lost.
package faillog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Header is the CSV header for failures.csv.
const Header = "failed_at,source,subject,sender,reason,input"

// inputLimit caps how much of the raw input is kept per row. Statement
// lines are short; email bodies are not.
const inputLimit = 200

// Writer appends failure rows to a CSV file, creating it with a header
// on first use.
type Writer struct {
	mu   sync.Mutex
	path string
}

// New returns a Writer for the given file path. The file is not
// touched until the first Record call.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Record appends one failure row. source names the producing stage
// ("statement" or "email"), subject and sender identify the email when
// there is one, reason is the parse error, input is the raw text that
// failed, truncated to keep the log readable.
func (w *Writer) Record(source, subject, sender string, reason error, input string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	writeHeader := false
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("Record: opening %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("Record: writing header: %w", err)
		}
	}

	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		source,
		subject,
		sender,
		reason.Error(),
		truncate(input, inputLimit),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("Record: writing row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
