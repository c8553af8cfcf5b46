package badge

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"golang.org/x/exp/rand"

	"github.com/marcus-crane/crooner/playback"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	defaultTheme = "default"

	barCount     = 75
	barStep      = 4
	heightCover  = 525
	heightNoArt  = 145
)

// Options are the rendering-affecting knobs carried over from the request.
type Options struct {
	Theme           string
	ShowOffline     bool
	BackgroundColor string
	Mode            string
}

type templateData struct {
	Height          int
	TitleText       string
	PrimaryName     string
	SecondaryName   string
	HasCover        bool
	CoverB64        string
	IsNowPlaying    bool
	AccentColor     string
	BackgroundColor string
	Mode            string
	ContentBar      string
	BarCSS          string
	ProgressPercent int
}

// Renderer is a pure function from normalized playback state plus theme to
// SVG markup. The equalizer bar layout is identical for every render of a
// process lifetime so it is computed once at construction instead of being
// memoized per call.
type Renderer struct {
	templates  *template.Template
	barCSS     string
	contentBar string
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("badge: failed to parse templates: %w", err)
	}
	return &Renderer{
		templates:  templates,
		barCSS:     generateBarCSS(barCount),
		contentBar: strings.Repeat("<div class='bar'></div>", barCount),
	}, nil
}

func (r *Renderer) Render(state playback.State, cover []byte, accent string, opts Options) ([]byte, error) {
	titleText := "Recently played"
	contentBar := r.contentBar
	if state.IsNowPlaying {
		titleText = "Now playing"
	} else if opts.ShowOffline {
		titleText = "Not playing"
		contentBar = ""
	}

	height := heightNoArt
	if len(cover) > 0 {
		height = heightCover
	}

	data := templateData{
		Height:          height,
		TitleText:       titleText,
		PrimaryName:     html.EscapeString(state.PrimaryName),
		SecondaryName:   html.EscapeString(state.SecondaryName),
		HasCover:        len(cover) > 0,
		CoverB64:        base64.StdEncoding.EncodeToString(cover),
		IsNowPlaying:    state.IsNowPlaying,
		AccentColor:     accent,
		BackgroundColor: opts.BackgroundColor,
		Mode:            opts.Mode,
		ContentBar:      contentBar,
		BarCSS:          r.barCSS,
		ProgressPercent: progressPercent(state),
	}

	tmpl := r.templates.Lookup(opts.Theme + ".svg.tmpl")
	if tmpl == nil {
		tmpl = r.templates.Lookup(defaultTheme + ".svg.tmpl")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("badge: failed to render %s theme: %w", opts.Theme, err)
	}
	return buf.Bytes(), nil
}

// progressPercent is safe because DurationMs is never zero in a normalized
// state.
func progressPercent(state playback.State) int {
	percent := state.ProgressMs * 100 / state.DurationMs
	if percent > 100 {
		percent = 100
	}
	return percent
}

func generateBarCSS(numBars int) string {
	rand.Seed(uint64(time.Now().UnixNano()))
	var sb strings.Builder
	left := 1
	for i := 1; i <= numBars; i++ {
		anim := 350 + rand.Intn(151)
		fmt.Fprintf(&sb, ".bar:nth-child(%d) { left: %dpx; animation-duration: %dms; }", i, left, anim)
		left += barStep
	}
	return sb.String()
}
