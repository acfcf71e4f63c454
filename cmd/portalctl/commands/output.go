package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/member-portal/client"
	"github.com/jrsteele09/member-portal/sessioncache"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

var errNotSignedIn = errors.New("not signed in, run portalctl login")

// PrintError writes err to w, preferring the message the server returned.
func PrintError(w io.Writer, err error) {
	_, _ = errorColor.Fprint(w, "Error: ")
	_, _ = fmt.Fprintln(w, errorMessage(err))
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, format, args...)
	_, _ = fmt.Fprintln(w)
}

func printField(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "%-14s", label+":")
	_, _ = fmt.Fprintln(w, value)
}

func printIdentity(w io.Writer, attrs sessioncache.Attributes, expiresAt time.Time) {
	printField(w, "Kind", string(attrs.Kind))
	printField(w, "Identifier", attrs.Identifier)
	printField(w, "Name", attrs.DisplayName)
	printField(w, "Role", attrs.Role)
	if attrs.OrgUnit != "" {
		printField(w, "Org unit", attrs.OrgUnit)
	}
	if attrs.MembershipID != nil {
		printField(w, "Membership", fmt.Sprintf("%d", *attrs.MembershipID))
	}
	if !expiresAt.IsZero() {
		printField(w, "Expires", expiresAt.Local().Format(time.RFC1123))
	}
}

func describe(attrs sessioncache.Attributes) string {
	name := strings.TrimSpace(attrs.DisplayName)
	if name == "" {
		name = attrs.Identifier
	}
	if attrs.Role == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, attrs.Role)
}
