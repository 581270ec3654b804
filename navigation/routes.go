package navigation

import "strings"

// Route path constants
const (
	RouteHome             = "/"
	RouteAuth             = "/auth"
	RouteDashboardStudent = "/dashboard/student"
	RouteDashboardTeacher = "/dashboard/teacher"
	RouteDashboardParent  = "/dashboard/parent"
	RouteDashboardAdmin   = "/dashboard/admin"
	RouteCourses          = "/courses"
	RouteAchievements     = "/achievements"
	RouteProfile          = "/profile"
)

// View names the page rendered for a route.
type View string

const (
	ViewHome             View = "home"
	ViewAuth             View = "auth"
	ViewStudentDashboard View = "dashboard/student"
	ViewTeacherDashboard View = "dashboard/teacher"
	ViewParentDashboard  View = "dashboard/parent"
	ViewAdminDashboard   View = "dashboard/admin"
	ViewCourses          View = "courses"
	ViewAchievements     View = "achievements"
	ViewProfile          View = "profile"
	ViewNotFound         View = "not-found"
)

// Access describes who may see a route.
type Access int

const (
	// AccessPublic routes are shown to visitors. Home and auth bounce principals to their dashboard.
	AccessPublic Access = iota
	// AccessAuthenticated routes need any principal.
	AccessAuthenticated
	// AccessRole routes need a principal holding Route.Role.
	AccessRole
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessAuthenticated:
		return "authenticated"
	case AccessRole:
		return "role"
	}
	return "unknown"
}

type Route struct {
	Path   string
	View   View
	Access Access
	Role   string // required role when Access is AccessRole
	// Landing marks the public pages an authenticated principal must never see.
	Landing bool
}

var routes = map[string]Route{
	RouteHome:             {Path: RouteHome, View: ViewHome, Access: AccessPublic, Landing: true},
	RouteAuth:             {Path: RouteAuth, View: ViewAuth, Access: AccessPublic, Landing: true},
	RouteDashboardStudent: {Path: RouteDashboardStudent, View: ViewStudentDashboard, Access: AccessRole, Role: "student"},
	RouteDashboardTeacher: {Path: RouteDashboardTeacher, View: ViewTeacherDashboard, Access: AccessRole, Role: "teacher"},
	RouteDashboardParent:  {Path: RouteDashboardParent, View: ViewParentDashboard, Access: AccessRole, Role: "parent"},
	RouteDashboardAdmin:   {Path: RouteDashboardAdmin, View: ViewAdminDashboard, Access: AccessRole, Role: "admin"},
	RouteCourses:          {Path: RouteCourses, View: ViewCourses, Access: AccessAuthenticated},
	RouteAchievements:     {Path: RouteAchievements, View: ViewAchievements, Access: AccessAuthenticated},
	RouteProfile:          {Path: RouteProfile, View: ViewProfile, Access: AccessAuthenticated},
}

// Lookup finds the route for a request path. Unknown paths report false and
// a public not-found route.
func Lookup(path string) (Route, bool) {
	clean := Normalise(path)
	if r, ok := routes[clean]; ok {
		return r, true
	}
	return Route{Path: clean, View: ViewNotFound, Access: AccessPublic}, false
}

// Normalise strips query strings and trailing slashes so "/auth/" and "/auth" match.
func Normalise(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return RouteHome
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// Routes returns every known route, in no particular order.
func Routes() []Route {
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		out = append(out, r)
	}
	return out
}
