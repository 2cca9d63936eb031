package main

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// sectionColors highlights digest lines by their leading label.
var sectionColors = []struct {
	prefix string
	attrs  []color.Attribute
}{
	{"DAILY DIGEST", []color.Attribute{color.Bold, color.FgBlue}},
	{"OVERDUE", []color.Attribute{color.Bold, color.FgRed}},
	{"DUE TODAY", []color.Attribute{color.Bold, color.FgYellow}},
	{"DUE SOON", []color.Attribute{color.Bold, color.FgCyan}},
	{"TOP 3", []color.Attribute{color.Bold, color.FgGreen}},
	{"CAPACITY", []color.Attribute{color.FgMagenta}},
	{"DEFER CANDIDATE", []color.Attribute{color.FgYellow}},
	{"AI NOTE", []color.Attribute{color.FgHiBlack}},
	{"MODE", []color.Attribute{color.FgHiBlack}},
	{"PROGRESS", []color.Attribute{color.FgHiBlack}},
}

// colorize decorates a rendered digest for a terminal. The text is returned
// unchanged when enabled is false.
func colorize(text string, enabled bool) string {
	if !enabled {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, sc := range sectionColors {
			if strings.HasPrefix(line, sc.prefix) {
				c := color.New(sc.attrs...)
				c.EnableColor()
				lines[i] = c.Sprint(line)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
