package ticket

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// NopPrinter discards documents. Used where no print facility exists.
type NopPrinter struct{}

func (NopPrinter) Print(ctx context.Context, doc Document) error { return nil }

// SpoolPrinter writes each document to its own file in Dir, where a print
// daemon attached to the thermal printer picks it up.
type SpoolPrinter struct {
	Dir string
	Now func() time.Time
}

// NewSpoolPrinter creates the spool directory if needed.
func NewSpoolPrinter(dir string) (*SpoolPrinter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &SpoolPrinter{Dir: dir, Now: time.Now}, nil
}

func (p *SpoolPrinter) Print(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fmt.Sprintf("%d-%s-%s.txt", p.Now().UnixNano(), doc.Mode, sanitize(doc.OrderID))
	tmp := filepath.Join(p.Dir, "."+name)
	if err := os.WriteFile(tmp, []byte(doc.Text), 0o644); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}
	// rename so the daemon never sees a partial file
	if err := os.Rename(tmp, filepath.Join(p.Dir, name)); err != nil {
		return fmt.Errorf("publish spool file: %w", err)
	}
	return nil
}

func sanitize(id string) string {
	out := []rune(id)
	for i, r := range out {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			out[i] = '_'
		}
	}
	return string(out)
}
