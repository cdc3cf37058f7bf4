package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Skin is the color palette the dashboard renders with. Skins load from
// YAML files under <configDir>/skins/<name>.yml; unset fields keep the
// built-in default, so a skin file only needs the colors it changes.
type Skin struct {
	Background string            `yaml:"background"`
	Foreground string            `yaml:"foreground"`
	Accent     string            `yaml:"accent"`
	Muted      string            `yaml:"muted"`
	Success    string            `yaml:"success"`
	Warning    string            `yaml:"warning"`
	Error      string            `yaml:"error"`
	Selection  string            `yaml:"selection"`
	Levels     map[string]string `yaml:"levels"`
}

func defaultSkin() Skin {
	return Skin{
		Background: "#012749",
		Foreground: "#FFFFFF",
		Accent:     "#33B1FF",
		Muted:      "245",
		Success:    "#42BE65",
		Warning:    "214",
		Error:      "#FA4D56",
		Selection:  "24",
		Levels: map[string]string{
			"FATAL": "#FA4D56",
			"ERROR": "#FA4D56",
			"WARN":  "214",
			"INFO":  "#33B1FF",
			"DEBUG": "245",
			"TRACE": "245",
		},
	}
}

// Palette colors. Every panel styles itself off these; InitializeSkin
// rewrites them before the program starts.
var (
	ColorNavy   lipgloss.Color
	ColorWhite  lipgloss.Color
	ColorBlue   lipgloss.Color
	ColorGray   lipgloss.Color
	ColorGreen  lipgloss.Color
	ColorYellow lipgloss.Color
	ColorOrange lipgloss.Color
	ColorRed    lipgloss.Color

	colorSelection lipgloss.Color
	levelColors    map[string]lipgloss.Color
)

// Shared styles derived from the palette.
var (
	sectionStyle       lipgloss.Style
	activeSectionStyle lipgloss.Style
	chartTitleStyle    lipgloss.Style
	helpStyle          lipgloss.Style
	separatorStyle     lipgloss.Style
	selectionStyle     lipgloss.Style
	cursorStyle        lipgloss.Style
)

func init() {
	applySkin(defaultSkin())
}

// InitializeSkin installs the named skin. "default" or empty applies the
// built-in palette without touching the filesystem.
func InitializeSkin(name, configDir string) error {
	skin := defaultSkin()
	if name != "" && name != "default" {
		path := filepath.Join(configDir, "skins", name+".yml")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("tui: read skin %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &skin); err != nil {
			return fmt.Errorf("tui: parse skin %s: %w", path, err)
		}
	}
	applySkin(skin)
	return nil
}

func applySkin(s Skin) {
	base := defaultSkin()
	pick := func(v, fallback string) lipgloss.Color {
		if v == "" {
			v = fallback
		}
		return lipgloss.Color(v)
	}

	ColorNavy = pick(s.Background, base.Background)
	ColorWhite = pick(s.Foreground, base.Foreground)
	ColorBlue = pick(s.Accent, base.Accent)
	ColorGray = pick(s.Muted, base.Muted)
	ColorGreen = pick(s.Success, base.Success)
	ColorYellow = pick(s.Warning, base.Warning)
	ColorOrange = pick(s.Warning, base.Warning)
	ColorRed = pick(s.Error, base.Error)
	colorSelection = pick(s.Selection, base.Selection)

	levelColors = make(map[string]lipgloss.Color, len(base.Levels))
	for level, color := range base.Levels {
		levelColors[level] = lipgloss.Color(color)
	}
	for level, color := range s.Levels {
		if color != "" {
			levelColors[level] = lipgloss.Color(color)
		}
	}

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Padding(0, 1)

	activeSectionStyle = sectionStyle.
		BorderForeground(ColorBlue)

	chartTitleStyle = lipgloss.NewStyle().
		Foreground(ColorBlue).
		Bold(true)

	helpStyle = lipgloss.NewStyle().
		Foreground(ColorGray)

	separatorStyle = lipgloss.NewStyle().
		Foreground(ColorGray)

	selectionStyle = lipgloss.NewStyle().
		Background(colorSelection).
		Foreground(ColorWhite)

	cursorStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Bold(true)
}

// getSeverityColor maps a normalized level to its display color.
func getSeverityColor(level string) lipgloss.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	switch level {
	case "FATAL", "CRITICAL", "ERROR":
		return ColorRed
	case "WARN":
		return ColorOrange
	case "INFO":
		return ColorBlue
	}
	return ColorGray
}
