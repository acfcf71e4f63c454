package server

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	methodColors = map[string]*color.Color{
		"GET":    color.New(color.FgGreen),
		"POST":   color.New(color.FgBlue),
		"PUT":    color.New(color.FgCyan),
		"DELETE": color.New(color.FgYellow),
		"PATCH":  color.New(color.FgMagenta),
	}
	defaultMethodColor = color.New(color.FgHiBlack)
	errorColor         = color.New(color.FgRed)
)

func methodLabel(method string) string {
	c, ok := methodColors[method]
	if !ok {
		c = defaultMethodColor
	}
	return c.Sprintf(" %-7s", method)
}

// logRoute prints a coloured route line for development consoles.
func logRoute(method, path string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", methodLabel(method), path)
}

func logError(method, path, msg string) {
	fmt.Fprintf(os.Stderr, "[%s] %s %s\n", methodLabel(method), path, errorColor.Sprint(msg))
}
