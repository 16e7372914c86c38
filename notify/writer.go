package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	goContacts "github.com/MrEthical07/goContacts"
)

// Writer prints rendered emails to an io.Writer instead of sending them.
// contactsd uses it in -dev mode so links can be followed by hand.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	renderer Renderer
}

func NewWriter(w io.Writer, renderer Renderer) *Writer {
	return &Writer{w: w, renderer: renderer}
}

func (w *Writer) Send(_ context.Context, n goContacts.Notification) error {
	msg, err := w.renderer.Render(n)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintf(w.w, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.HTML)
	return err
}
