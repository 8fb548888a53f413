package match

// Layout is the display arrangement a scoreboard overlay renders with.
type Layout string

const (
	LayoutSideBySide Layout = "sideBySide"
	LayoutStacked    Layout = "stacked"
	LayoutScoreboard Layout = "scoreboard"
)

// Valid reports whether l is one of the known layouts.
func (l Layout) Valid() bool {
	switch l {
	case LayoutSideBySide, LayoutStacked, LayoutScoreboard:
		return true
	}
	return false
}

// TeamConfig holds the display state for one side of the scoreboard.
type TeamConfig struct {
	Name       string `json:"name"`
	BgColor    string `json:"bgColor"`
	TextColor  string `json:"textColor"`
	SetScore   int    `json:"setScore"`
	MatchScore int    `json:"matchScore"`
	Serving    bool   `json:"serving"`
}

// MatchConfig is the complete state of one scoreboard session. MatchID is the
// map key in the repository and never changes after creation.
type MatchConfig struct {
	MatchID    string     `json:"matchId"`
	Layout     Layout     `json:"layout"`
	FontFamily string     `json:"fontFamily"`
	FontSize   int        `json:"fontSize"`
	Team1      TeamConfig `json:"team1"`
	Team2      TeamConfig `json:"team2"`
}

// Font size bounds for overlay rendering.
const (
	MinFontSize = 12
	MaxFontSize = 120
)

// DefaultMatchConfig returns the default template with matchID substituted.
func DefaultMatchConfig(matchID string) MatchConfig {
	return MatchConfig{
		MatchID:    matchID,
		Layout:     LayoutSideBySide,
		FontFamily: "Inter",
		FontSize:   48,
		Team1: TeamConfig{
			Name:      "Team 1",
			BgColor:   "#1e40af",
			TextColor: "#ffffff",
			Serving:   true,
		},
		Team2: TeamConfig{
			Name:      "Team 2",
			BgColor:   "#dc2626",
			TextColor: "#ffffff",
		},
	}
}
