package message

import (
	"fmt"

	"github.com/ValerySidorin/disclosure/pkg/report"
)

// Message announces the terminal outcome of one document.
type Message struct {
	Year    int
	DocID   uint64
	Outcome report.Outcome
}

func (m *Message) String() string {
	return fmt.Sprintf("%d_%d_%s", m.Year, m.DocID, m.Outcome)
}
