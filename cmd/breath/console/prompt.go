package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

var yesNoConstraints = []string{Yes, No}

// Confirm asks a yes/no question defaulting to yes.
func Confirm(question string) (bool, error) {
	answer, err := Prompt(question, yesNoConstraints...)
	if err != nil {
		return false, err
	}
	return answer == Yes, nil
}

// Prompt reads one line. With constraints, the answer is normalized to one of them
// and the first constraint is the default.
func Prompt(question string, constraints ...string) (string, error) {
	prompt := question
	if len(constraints) > 0 {
		var b strings.Builder
		b.WriteString(question)
		b.WriteString(" [")
		b.WriteString(strings.ToUpper(constraints[0]))
		for _, c := range constraints[1:] {
			b.WriteString("/")
			b.WriteString(c)
		}
		b.WriteString("]: ")
		prompt = b.String()
	}
	rl, err := readline.New(prompt)
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return normalize(response, constraints), nil
}

func normalize(response string, constraints []string) string {
	if len(constraints) == 0 {
		return response
	}
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized
		}
	}
	// empty or unmatched input picks the default
	return constraints[0]
}
