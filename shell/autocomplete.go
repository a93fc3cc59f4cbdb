package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/domino14/c4solver/config"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"solve": {
		Options: []string{"-depth", "-maxtime"},
	},
	"aiplay": {
		Options: []string{"-depth", "-maxtime"},
	},
	"analyze": {
		Options: []string{"-depth", "-maxtime"},
	},
	"pv": {
		Options: []string{"-depth", "-maxtime"},
	},
	"play": {
		Args: []string{"1", "2", "3", "4", "5", "6", "7"},
	},
	"book": {
		Args: []string{"off"},
	},
	"set": {
		Args: settableKeys,
	},
	"autoplay": {
		Options: []string{"-games", "-threads", "-random-plies", "-player1", "-player2", "-out", "-seeds"},
		Args:    []string{"log", "seeds"},
	},
	"bench": {
		Options: []string{"-threads", "-weak"},
	},
	"help": {
		Args: []string{"solve", "autoplay", "bench", "script", "scores"},
	},
}

var commandNames = []string{
	"new", "moves", "play", "undo", "show", "solve", "aiplay", "pv", "analyze",
	"book", "set", "autoplay", "bench", "script", "help", "exit",
}

var boolValues = []string{"true", "false"}

// Do implements the readline.AutoCompleter interface.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "player1", "player2":
				completions = []string{"solver", "random"}
			case "weak":
				completions = boolValues
			}
		}
		if cmdName == "set" && lastCompleteField == config.ConfigNullWindow {
			completions = boolValues
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
