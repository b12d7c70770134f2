package cli

import (
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer"
	"github.com/matzehuels/ecomap/pkg/viewer/geometry"
	"github.com/matzehuels/ecomap/pkg/viewer/marker"
)

// Terminal layout. Each map cell shows two screen pixels stacked with a
// half block, so the viewer's viewport is the pane width by twice its height.
const (
	detailWidth  = 38
	headerLines  = 1
	footerLines  = 1
	minPaneWidth = 20
	pixelsPerRow = 2
	halfBlock    = "▀"

	// maxGlyphWidth clips marker labels to the cells one marker may cover.
	maxGlyphWidth = 2
)

// Map styles
var (
	mapBackground   = lipgloss.Color("#e8efe4")
	markerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorGreen)
	markerSelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(colorYellow)
	detailPaneStyle = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(colorDim)
	detailNameStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// MapModel - Terminal map viewer
// =============================================================================

// MapModel is the bubbletea model hosting a mounted viewer in the terminal.
type MapModel struct {
	Viewer *viewer.Viewer
	Title  string

	// img is the decoded base map, nil when it failed to load.
	img image.Image

	width, height int
	paneW, paneH  int

	// pressed is set while the left button is held after a press on the map.
	pressed bool
	// pressedOn is the marker under the press, empty when it missed. A
	// release only clicks a marker that was also under the press.
	pressedOn string
}

// NewMapModel creates a terminal viewer around v. img may be nil.
func NewMapModel(v *viewer.Viewer, img image.Image, title string) MapModel {
	return MapModel{Viewer: v, Title: title, img: img}
}

func (m MapModel) Init() tea.Cmd {
	return nil
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	return m, nil
}

func (m *MapModel) resize(w, h int) {
	m.width, m.height = w, h
	m.paneW = w - detailWidth - 1
	if m.paneW < minPaneWidth {
		m.paneW = minPaneWidth
	}
	m.paneH = h - headerLines - footerLines
	if m.paneH < 1 {
		m.paneH = 1
	}
	m.Viewer.Resize(geometry.Size{W: float64(m.paneW), H: float64(m.paneH * pixelsPerRow)})
}

func (m MapModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.Viewer
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycle(1)
	case "shift+tab":
		m.cycle(-1)
	case "b", "backspace":
		v.Back()
	case "esc", "x":
		v.Close()
	case "+", "=":
		v.ZoomIn()
	case "-":
		v.ZoomOut()
	case "0":
		v.ResetView()
	case "left", "h":
		v.Engine().Pan(float64(m.paneW)/8, 0)
	case "right", "l":
		v.Engine().Pan(-float64(m.paneW)/8, 0)
	case "up", "k":
		v.Engine().Pan(0, float64(m.paneH*pixelsPerRow)/8)
	case "down", "j":
		v.Engine().Pan(0, -float64(m.paneH*pixelsPerRow)/8)
	}
	return m, nil
}

// cycle selects the next or previous plant in list order, starting from the
// shown plant. With nothing shown, tab starts at the first entry and
// shift+tab at the last.
func (m *MapModel) cycle(step int) {
	records := m.Viewer.Plants()
	n := len(records)
	if n == 0 {
		return
	}
	cur := -1
	if id, ok := m.Viewer.Selected(); ok {
		cur = indexOf(records, id)
	}
	if cur < 0 && step < 0 {
		cur = 0
	}
	next := ((cur+step)%n + n) % n
	m.Viewer.SelectFromList(records[next].ID)
}

func (m *MapModel) handleMouse(msg tea.MouseMsg) {
	v := m.Viewer
	p, inside := m.screenPoint(msg.X, msg.Y)

	switch {
	case msg.Action == tea.MouseActionPress && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
		if !inside {
			return
		}
		delta := -1.0
		if msg.Button == tea.MouseButtonWheelDown {
			delta = 1
		}
		v.Wheel(delta, p, msg.Ctrl)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return
		}
		m.pressed = true
		m.pressedOn, _ = m.markerAt(p)
		v.PointerDown(p)
	case msg.Action == tea.MouseActionMotion:
		if m.pressed {
			v.PointerMove(p)
		}
	case msg.Action == tea.MouseActionRelease:
		if !m.pressed {
			return
		}
		m.pressed = false
		v.PointerUp()
		if !inside {
			return
		}
		if id, ok := m.markerAt(p); ok && id == m.pressedOn {
			v.ClickMarker(id)
		} else {
			v.ClickEmpty()
		}
	}
}

// screenPoint converts a terminal cell to a viewer screen point at the
// cell's centre and reports whether it lies on the map pane.
func (m MapModel) screenPoint(x, y int) (geometry.Point, bool) {
	row := y - headerLines
	p := geometry.Point{X: float64(x) + 0.5, Y: float64(row*pixelsPerRow) + 1}
	inside := x >= 0 && x < m.paneW && row >= 0 && row < m.paneH
	return p, inside
}

// markerAt finds the marker drawn under a screen point.
func (m MapModel) markerAt(p geometry.Point) (string, bool) {
	e := m.Viewer.Engine()
	radius := pixelsPerRow / e.State().Zoom
	if mk, ok := marker.HitTest(m.Viewer.Markers(), e.ScreenToImage(p), radius); ok {
		return mk.ID, true
	}
	return "", false
}

func (m MapModel) View() string {
	if m.paneW == 0 {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderMap(), m.renderDetail()))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("drag pan · ctrl+wheel zoom · click marker · tab list · b back · esc close · +/-/0 zoom · q quit"))
	return b.String()
}

func (m MapModel) header() string {
	t := m.Viewer.Transform()
	info := fmt.Sprintf("  zoom %d%%  %d plants", int(t.Zoom*100+0.5), len(m.Viewer.Plants()))
	if m.Viewer.Image().State == marker.ImageFailed {
		info += "  " + StyleWarning.Render("map unavailable")
	}
	return StyleTitle.Render(m.Title) + listDimStyle.Render(info)
}

// renderMap samples the base map into half-block cells and draws markers
// over it.
func (m MapModel) renderMap() string {
	e := m.Viewer.Engine()
	cells := make([][]string, m.paneH)
	for row := range cells {
		cells[row] = make([]string, m.paneW)
		for col := range cells[row] {
			top := m.sample(e, float64(col)+0.5, float64(row*pixelsPerRow)+0.5)
			bottom := m.sample(e, float64(col)+0.5, float64(row*pixelsPerRow)+1.5)
			cells[row][col] = lipgloss.NewStyle().Foreground(top).Background(bottom).Render(halfBlock)
		}
	}

	selected, _ := m.Viewer.Selected()
	for _, mk := range m.Viewer.Markers() {
		s := e.ImageToScreen(mk.Anchor)
		if s.X < 0 || s.Y < 0 {
			continue
		}
		col, row := int(s.X), int(s.Y)/pixelsPerRow
		glyph := clipWidth(mk.Glyph(), maxGlyphWidth)
		w := lipgloss.Width(glyph)
		if row >= m.paneH || col+w > m.paneW {
			continue
		}
		style := markerStyle
		if mk.ID == selected {
			style = markerSelStyle
		}
		cells[row][col] = style.Render(glyph)
		for i := 1; i < w; i++ {
			cells[row][col+i] = ""
		}
	}

	lines := make([]string, m.paneH)
	for row := range cells {
		lines[row] = strings.Join(cells[row], "")
	}
	return strings.Join(lines, "\n")
}

// sample returns the map color at a screen pixel, or the background.
func (m MapModel) sample(e *geometry.Engine, x, y float64) lipgloss.Color {
	if m.img == nil {
		return mapBackground
	}
	p := e.ScreenToImage(geometry.Point{X: x, Y: y})
	b := m.img.Bounds()
	ix, iy := b.Min.X+int(p.X), b.Min.Y+int(p.Y)
	if p.X < 0 || p.Y < 0 || ix >= b.Max.X || iy >= b.Max.Y {
		return mapBackground
	}
	r, g, bl, _ := m.img.At(ix, iy).RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, bl>>8))
}

func (m MapModel) renderDetail() string {
	width := detailWidth - 2
	body := lipgloss.NewStyle().Width(width)

	var parts []string
	if id, ok := m.Viewer.Selected(); ok {
		lines := m.Viewer.DetailLines()
		parts = append(parts, detailNameStyle.Render(lines[0]))
		for _, l := range lines[1:] {
			parts = append(parts, body.Render(l))
		}
		parts = append(parts, "", listDimStyle.Render(fmt.Sprintf("%s · %d/%d", id, indexOf(m.Viewer.Plants(), id)+1, len(m.Viewer.Plants()))))
	} else {
		parts = append(parts, body.Render(m.Viewer.Messages().Hint))
	}
	if n := len(m.Viewer.History()); n > 0 {
		parts = append(parts, listDimStyle.Render(fmt.Sprintf("b: back (%d)", n)))
	}

	return detailPaneStyle.Height(m.paneH).Render(strings.Join(parts, "\n"))
}

func indexOf(records []plants.Record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// clipWidth shortens s to at most w terminal cells.
func clipWidth(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > w {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
