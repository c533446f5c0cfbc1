// Package docs holds the markdown topics shown by `gridform docs`.
package docs

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

//go:embed content/*.md
var contentFS embed.FS

func Topics() []string {
	entries, err := fs.Glob(contentFS, "content/*.md")
	if err != nil {
		return []string{}
	}
	var topics []string
	for _, path := range entries {
		base := filepath.Base(path)
		topic := strings.TrimSuffix(base, filepath.Ext(base))
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

func Get(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return "", false
	}
	b, err := contentFS.ReadFile(filepath.ToSlash(filepath.Join("content", topic+".md")))
	if err != nil {
		return "", false
	}
	return string(b), true
}

var (
	rendererMu sync.Mutex
	// Renderers are cached by style and wrap width; building one is not free.
	renderers = map[string]*glamour.TermRenderer{}
)

// Render draws md for a terminal of the given width. plain selects the style without
// colors. On renderer failure the markdown is returned unchanged.
func Render(md string, width int, plain bool) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	style := Style()
	if plain {
		style = styles.NoTTYStyle
	}
	key := style + ":" + strconv.Itoa(width)

	rendererMu.Lock()
	r := renderers[key]
	if r == nil {
		// Avoid WithAutoStyle: it queries the terminal and may block.
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			rendererMu.Unlock()
			return md
		}
		renderers[key] = rr
		r = rr
	}
	rendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// Style picks the glamour style: GRIDFORM_MD_STYLE (light|dark) if set, else dark.
func Style() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GRIDFORM_MD_STYLE"))) {
	case "light":
		return styles.LightStyle
	default:
		return styles.DarkStyle
	}
}
