package termui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/treykane/pixview/internal/raster"
	"github.com/treykane/pixview/internal/viewer"
)

type rendererKey struct {
	style string
	width int
}

var (
	rendererCacheMu sync.Mutex
	rendererCache   = map[rendererKey]*glamour.TermRenderer{}
)

// infoMarkdown describes the displayed image and the key bindings.
func infoMarkdown(s viewer.Status, loaded bool) string {
	var b strings.Builder
	b.WriteString("# pixview\n\n")
	if !loaded {
		b.WriteString("No image loaded yet.\n\n")
	} else {
		fmt.Fprintf(&b, "- **File:** `%s`\n", s.Path)
		fmt.Fprintf(&b, "- **Image:** %d x %d pixels\n", s.ImageW, s.ImageH)
		fmt.Fprintf(&b, "- **Window:** %d x %d pixels\n", s.WindowW, s.WindowH)
		fmt.Fprintf(&b, "- **Scale:** %.2f\n", s.Scale)
		fmt.Fprintf(&b, "- **Offset:** %.0f, %.0f\n", s.OffsetX, s.OffsetY)
		if !s.ModTime.IsZero() {
			fmt.Fprintf(&b, "- **Modified:** %s\n", s.ModTime.Format(time.DateTime))
		}
		fmt.Fprintf(&b, "- **Reloads:** %d\n", s.Reloads)
		switch {
		case raster.IsDecodeError(s.Err):
			fmt.Fprintf(&b, "- **Reload failed:** %s\n", s.Err)
		case s.Err != nil:
			fmt.Fprintf(&b, "- **Watch error:** %s\n", s.Err)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Keys\n\n")
	b.WriteString("- `q`, `ctrl+c`, `esc`: quit\n")
	b.WriteString("- `r`: reload the image now\n")
	b.WriteString("- `ctrl+l`: redraw\n")
	b.WriteString("- `i`: toggle this panel\n")
	b.WriteString("- `y`: copy the image path\n")
	return b.String()
}

// renderMarkdown renders content for the given width. If glamour fails, the
// raw markdown is returned so the panel still shows something.
func renderMarkdown(content string, width int, style string) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := getRenderer(width, style)
	if err != nil {
		log.Error("create markdown renderer", "width", width, "style", style, "error", err)
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		log.Error("render markdown", "width", width, "error", err)
		return content
	}
	return out
}

func getRenderer(width int, style string) (*glamour.TermRenderer, error) {
	style = strings.ToLower(strings.TrimSpace(style))
	if style == "" {
		style = "dark"
	}
	k := rendererKey{style: style, width: width}

	rendererCacheMu.Lock()
	defer rendererCacheMu.Unlock()
	if r, ok := rendererCache[k]; ok {
		return r, nil
	}
	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	rendererCache[k] = r
	return r, nil
}
