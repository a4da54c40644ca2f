package voice

import "strings"

// Command is a recognized voice command.
type Command int

const (
	// CommandNone means no alternative matched.
	CommandNone Command = iota
	// CommandExtractText switches to text extraction.
	CommandExtractText
	// CommandStopText switches back to object detection.
	CommandStopText
)

func (c Command) String() string {
	switch c {
	case CommandExtractText:
		return "extract_text"
	case CommandStopText:
		return "stop_text"
	default:
		return "none"
	}
}

// MarshalText encodes the command by name.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Phrases maps spoken phrases to commands.
type Phrases struct {
	extract []string
	stop    []string
}

// NewPhrases builds a matcher. Empty lists fall back to the defaults.
func NewPhrases(extract, stop []string) Phrases {
	if len(extract) == 0 {
		extract = []string{"extract text"}
	}
	if len(stop) == 0 {
		stop = []string{"stop text"}
	}
	p := Phrases{}
	for _, s := range extract {
		p.extract = append(p.extract, normalize(s))
	}
	for _, s := range stop {
		p.stop = append(p.stop, normalize(s))
	}
	return p
}

// Matches returns the command of every alternative that matches a phrase
// exactly, ignoring case and surrounding whitespace, in alternative order.
func (p Phrases) Matches(alternatives []string) []Command {
	var cmds []Command
	for _, alt := range alternatives {
		alt = normalize(alt)
		switch {
		case contains(p.extract, alt):
			cmds = append(cmds, CommandExtractText)
		case contains(p.stop, alt):
			cmds = append(cmds, CommandStopText)
		}
	}
	return cmds
}

// Parse returns the command that decides the resulting mode: the last
// matching alternative, since matches are applied in order.
func (p Phrases) Parse(alternatives []string) Command {
	cmds := p.Matches(alternatives)
	if len(cmds) == 0 {
		return CommandNone
	}
	return cmds[len(cmds)-1]
}

// ParseCommand matches alternatives against the default phrases.
func ParseCommand(alternatives []string) Command {
	return NewPhrases(nil, nil).Parse(alternatives)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
