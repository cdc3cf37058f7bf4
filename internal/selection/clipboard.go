package selection

import (
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

const osc52Limit = 100 * 1024

// WriteClipboard copies text to the system clipboard, falling back to
// an OSC52 escape written to the terminal when no native clipboard is
// reachable (headless hosts, SSH sessions).
func WriteClipboard(text string) error {
	if err := clipboard.WriteAll(text); err == nil {
		return nil
	}
	return writeOSC52(text, os.Stdout)
}

func writeOSC52(text string, w *os.File) error {
	seq := osc52.New(text).Limit(osc52Limit)

	term := strings.ToLower(os.Getenv("TERM"))
	if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(term, "tmux") {
		seq = seq.Tmux()
	} else if strings.HasPrefix(term, "screen") {
		seq = seq.Screen()
	}

	_, err := seq.WriteTo(w)
	return err
}
