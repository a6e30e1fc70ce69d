package cli

import (
	"io"

	"github.com/fatih/color"

	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/host/memhost"
)

var (
	stopColor    = color.New(color.FgRed, color.Bold)
	cautionColor = color.New(color.FgYellow)
	noticeColor  = color.New(color.FgCyan)
)

// printAlerts shows the alerts a command raised, the way the word
// processor would have shown them to the user.
func printAlerts(w io.Writer, docID string, alerts []memhost.Alert) {
	for _, a := range alerts {
		c, label := noticeColor, "notice"
		switch a.Icon {
		case host.IconStop:
			c, label = stopColor, "error"
		case host.IconCaution:
			c, label = cautionColor, "warning"
		}
		c.Fprintf(w, "%s [%s] %s\n", label, docID, a.Text)
	}
}
