package auth

// View is one of the two pages.
type View int

const (
	ViewLogin View = iota
	ViewDashboard
)

// Paths of the two views.
const (
	LoginPath     = "/"
	DashboardPath = "/dashboard"
)

// Guard decides whether view may be shown. It returns the path to redirect
// to, or "" when the view is allowed.
func Guard(view View, loggedIn bool) string {
	switch {
	case view == ViewLogin && loggedIn:
		return DashboardPath
	case view == ViewDashboard && !loggedIn:
		return LoginPath
	default:
		return ""
	}
}
