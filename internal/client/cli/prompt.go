package cli

import (
	"fmt"
	"strings"
)

// prompt asks for one line of input. It returns "" at end of input.
func (s *session) prompt(label string) string {
	fmt.Fprintf(s.out, "%s: ", label)
	line, _ := s.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm asks a yes/no question defaulting to no.
func (s *session) confirm(question string) bool {
	switch strings.ToLower(s.prompt(question + " [y/N]")) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
