package archive

import (
	"fmt"
	"strings"

	"github.com/tecu23/pairing-server/pkg/game"
)

// BuildPGN renders a finished match as PGN with seven tag roster headers
// plus TimeControl and Termination.
func BuildPGN(s game.Summary) string {
	var b strings.Builder

	date := s.EndedAt
	result := s.Result.PGN()

	b.WriteString("[Event \"Casual game\"]\n")
	b.WriteString("[Site \"pairing-server\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[Round \"-\"]\n")
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitize(string(s.White))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitize(string(s.Black))))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", result))
	if strings.TrimSpace(s.TimeControl) != "" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", sanitize(s.TimeControl)))
	}
	b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n\n", sanitize(s.ResultText)))

	for i := 0; i < len(s.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(s.MovesSAN[i])))
		if i+1 < len(s.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(s.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)

	return b.String()
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
