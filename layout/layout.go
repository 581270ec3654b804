package layout

import (
	"github.com/jrsteele09/go-edu-portal/guard"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/users"
)

type ShellKind string

const (
	ShellNone    ShellKind = "none"
	ShellGeneric ShellKind = "generic"
	ShellStudent ShellKind = "student"
	ShellTeacher ShellKind = "teacher"
	ShellParent  ShellKind = "parent"
	ShellAdmin   ShellKind = "admin"
)

var roleShells = map[string]ShellKind{
	users.RoleStudent.String(): ShellStudent,
	users.RoleTeacher.String(): ShellTeacher,
	users.RoleParent.String():  ShellParent,
	users.RoleAdmin.String():   ShellAdmin,
}

var viewShells = map[navigation.View]ShellKind{
	navigation.ViewStudentDashboard: ShellStudent,
	navigation.ViewTeacherDashboard: ShellTeacher,
	navigation.ViewParentDashboard:  ShellParent,
	navigation.ViewAdminDashboard:   ShellAdmin,
}

// SelectShell picks the chrome for a routing decision. Role dashboards get
// their role's shell, other allowed pages the generic one, and a redirect to
// the auth page or a pending decision gets none.
func SelectShell(d guard.Decision) ShellKind {
	switch d.Kind {
	case guard.Allow:
		if shell, ok := viewShells[d.View]; ok {
			return shell
		}
		return ShellGeneric
	case guard.RedirectToDashboard:
		if shell, ok := roleShells[d.Role]; ok {
			return shell
		}
	}
	return ShellNone
}

type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Layout is the navigation chrome mounted around a page.
type Layout struct {
	Shell   ShellKind `json:"shell"`
	Header  bool      `json:"header"`
	Sidebar []NavItem `json:"sidebar,omitempty"`
}

var (
	sharedItems = []NavItem{
		{Label: "Courses", Path: navigation.RouteCourses},
		{Label: "Achievements", Path: navigation.RouteAchievements},
		{Label: "Profile", Path: navigation.RouteProfile},
	}
	dashboardItems = map[ShellKind]NavItem{
		ShellStudent: {Label: "Dashboard", Path: navigation.RouteDashboardStudent},
		ShellTeacher: {Label: "Dashboard", Path: navigation.RouteDashboardTeacher},
		ShellParent:  {Label: "Dashboard", Path: navigation.RouteDashboardParent},
		ShellAdmin:   {Label: "Dashboard", Path: navigation.RouteDashboardAdmin},
	}
)

// Chrome returns the header and sidebar for a shell.
func Chrome(kind ShellKind) Layout {
	switch kind {
	case ShellNone:
		return Layout{Shell: ShellNone}
	case ShellGeneric:
		return Layout{Shell: ShellGeneric, Header: true}
	}
	dash, ok := dashboardItems[kind]
	if !ok {
		return Layout{Shell: ShellNone}
	}
	items := make([]NavItem, 0, len(sharedItems)+1)
	items = append(items, dash)
	items = append(items, sharedItems...)
	return Layout{Shell: kind, Header: true, Sidebar: items}
}
