package quiz

import (
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultColor  = "#FF6B6B"
	maxTeamName   = 50
	maxColorValue = 20
)

// Palette is handed out in order to new teams that do not pick a color.
var Palette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#96CEB4",
	"#FFEAA7",
	"#DDA0DD",
	"#98D8C8",
	"#F7DC6F",
}

type Team struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Points int    `json:"points"`
}

// Ledger is the ordered set of teams in a game and their point balances.
// Points only change through Apply and ResetAll.
type Ledger []Team

func (l Ledger) index(id string) int {
	return slices.IndexFunc(l, func(t Team) bool { return t.ID == id })
}

// Team returns the team with the given id.
func (l Ledger) Team(id string) (Team, bool) {
	i := l.index(id)
	if i < 0 {
		return Team{}, false
	}
	return l[i], true
}

func (l Ledger) nextColor() string {
	for _, c := range Palette {
		used := slices.ContainsFunc(l, func(t Team) bool {
			return strings.EqualFold(t.Color, c)
		})
		if !used {
			return c
		}
	}
	return DefaultColor
}

// Add appends a team at baseline points. An empty name becomes "Team N" and
// an empty color takes the first unused palette entry.
func (l *Ledger) Add(name, color string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Team %d", len(*l)+1)
	}
	if err := validateTeamName(name); err != nil {
		return Team{}, err
	}

	color = strings.TrimSpace(color)
	if color == "" {
		color = l.nextColor()
	}
	if err := validateColor(color); err != nil {
		return Team{}, err
	}

	t := Team{
		ID:     newID(),
		Name:   name,
		Color:  color,
		Points: BaselinePoints,
	}
	*l = append(*l, t)

	return t, nil
}

func (l Ledger) Rename(id, name string) (Team, error) {
	i := l.index(id)
	if i < 0 {
		return Team{}, newNotFound("team", id)
	}

	name = strings.TrimSpace(name)
	if err := validateTeamName(name); err != nil {
		return Team{}, err
	}
	l[i].Name = name

	return l[i], nil
}

func (l Ledger) Recolor(id, color string) (Team, error) {
	i := l.index(id)
	if i < 0 {
		return Team{}, newNotFound("team", id)
	}

	color = strings.TrimSpace(color)
	if err := validateColor(color); err != nil {
		return Team{}, err
	}
	l[i].Color = color

	return l[i], nil
}

func (l *Ledger) Remove(id string) (Team, error) {
	i := l.index(id)
	if i < 0 {
		return Team{}, newNotFound("team", id)
	}

	t := (*l)[i]
	*l = slices.Delete(*l, i, i+1)

	return t, nil
}

// Apply sets a team's balance to newPoints, which must already be clamped.
func (l Ledger) Apply(id string, newPoints int) error {
	i := l.index(id)
	if i < 0 {
		return newNotFound("team", id)
	}
	if !inPercentRange(newPoints) {
		return newInvalidInput("points %d out of range for team %q", newPoints, id)
	}
	l[i].Points = newPoints

	return nil
}

func (l Ledger) ResetAll() {
	for i := range l {
		l[i].Points = BaselinePoints
	}
}

func (l Ledger) ids() []string {
	ids := make([]string, len(l))
	for i, t := range l {
		ids[i] = t.ID
	}
	return ids
}

func validateTeamName(name string) error {
	if name == "" {
		return newInvalidInput("team name is required")
	}
	if len([]rune(name)) > maxTeamName {
		return newInvalidInput("team name longer than %d characters", maxTeamName)
	}
	return nil
}

func validateColor(color string) error {
	if color == "" {
		return newInvalidInput("team color is required")
	}
	if len(color) > maxColorValue {
		return newInvalidInput("team color longer than %d characters", maxColorValue)
	}
	return nil
}
