package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/atinyakov/sessiongate/internal/client/form"
	"github.com/atinyakov/sessiongate/internal/client/nav"
)

// RenderDashboard writes the dashboard for snap.
func RenderDashboard(w io.Writer, snap Snapshot) {
	switch snap.State {
	case Loading:
		fmt.Fprintln(w, "Loading...")
	case Failed:
		fmt.Fprintln(w, "Error")
		fmt.Fprintln(w, snap.Message)
		if !snap.Redirected {
			fmt.Fprintln(w, "[Go to Login]  type 'login' to clear the session and sign in again")
		}
	case Ready:
		id := snap.Identity
		fmt.Fprintf(w, "Welcome, %s\n", id.Name)
		fmt.Fprintf(w, "Role: %s\n", id.Role)
		if id.IsAdmin() {
			fmt.Fprintln(w, "Admin Dashboard")
			fmt.Fprintln(w, "Manage users, view analytics, and access admin tools.")
		} else {
			fmt.Fprintln(w, "User Dashboard")
			fmt.Fprintln(w, "Access your personal dashboard and user features.")
		}
	}
}

// RenderNotFound writes the catch-all view.
func RenderNotFound(w io.Writer) {
	fmt.Fprintln(w, "404")
	fmt.Fprintln(w, "Page Not Found")
	fmt.Fprintf(w, "[Go Home] %s\n", nav.Root)
}

// RenderFormErrors writes one line per failed field, in field order.
func RenderFormErrors(w io.Writer, errs form.Errors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, errs[f])
	}
}
