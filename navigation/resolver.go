package navigation

var dashboards = map[string]string{
	"student": RouteDashboardStudent,
	"teacher": RouteDashboardTeacher,
	"parent":  RouteDashboardParent,
	"admin":   RouteDashboardAdmin,
}

// Resolve maps an optional role to its dashboard. Missing, empty or
// unrecognised roles resolve to the auth page so the user signs in again.
func Resolve(role *string) string {
	if role == nil {
		return RouteAuth
	}
	if path, ok := dashboards[*role]; ok {
		return path
	}
	return RouteAuth
}

// Destinations lists every path Resolve can return.
func Destinations() []string {
	return []string{RouteDashboardStudent, RouteDashboardTeacher, RouteDashboardParent, RouteDashboardAdmin, RouteAuth}
}
