package guard_test

import (
	"context"
	"testing"
	"testing/quick"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/guard"
	"github.com/jrsteele09/go-edu-portal/mailer/mailerfake"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/provider/local"
	"github.com/jrsteele09/go-edu-portal/sessions"
	"github.com/jrsteele09/go-edu-portal/token"
	"github.com/jrsteele09/go-edu-portal/users"
	fakeuserrepo "github.com/jrsteele09/go-edu-portal/users/repofake"
	"github.com/stretchr/testify/require"
)

func signedIn(role users.RoleType) sessions.Session {
	return sessions.Session{Principal: &users.User{ID: "u-1", Email: "u@example.com", Role: role}}
}

var allPaths = []string{"/", "/auth", "/dashboard/student", "/dashboard/teacher", "/dashboard/parent",
	"/dashboard/admin", "/courses", "/achievements", "/profile", "/missing", "/auth/", "/courses?tab=2"}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		session sessions.Session
		want    guard.Decision
	}{
		{"visitor on home", "/", sessions.Session{}, guard.Decision{Kind: guard.Allow, Path: "/", View: navigation.ViewHome}},
		{"visitor on auth", "/auth", sessions.Session{}, guard.Decision{Kind: guard.Allow, Path: "/auth", View: navigation.ViewAuth}},
		{"visitor on dashboard", "/dashboard/parent", sessions.Session{}, guard.Decision{Kind: guard.RedirectToAuth, Path: "/dashboard/parent", Target: "/auth"}},
		{"visitor on courses", "/courses", sessions.Session{}, guard.Decision{Kind: guard.RedirectToAuth, Path: "/courses", Target: "/auth"}},
		{"teacher on home", "/", signedIn(users.RoleTeacher), guard.Decision{Kind: guard.RedirectToDashboard, Path: "/", Target: "/dashboard/teacher", Role: "teacher"}},
		{"teacher on own dashboard", "/dashboard/teacher", signedIn(users.RoleTeacher), guard.Decision{Kind: guard.Allow, Path: "/dashboard/teacher", View: navigation.ViewTeacherDashboard}},
		{"teacher on student dashboard", "/dashboard/student", signedIn(users.RoleTeacher), guard.Decision{Kind: guard.RedirectToAuth, Path: "/dashboard/student", Target: "/auth"}},
		{"student on profile", "/profile/", signedIn(users.RoleStudent), guard.Decision{Kind: guard.Allow, Path: "/profile", View: navigation.ViewProfile}},
		{"unknown role on auth", "/auth", signedIn("janitor"), guard.Decision{Kind: guard.RedirectToDashboard, Path: "/auth", Target: "/auth", Role: "janitor"}},
		{"unknown role on courses", "/courses", signedIn("janitor"), guard.Decision{Kind: guard.Allow, Path: "/courses", View: navigation.ViewCourses}},
		{"unknown path", "/nowhere", signedIn(users.RoleAdmin), guard.Decision{Kind: guard.Allow, Path: "/nowhere", View: navigation.ViewNotFound}},
		{"absent role on student dashboard", "/dashboard/student", sessions.Session{Principal: &users.User{ID: "u"}}, guard.Decision{Kind: guard.Allow, Path: "/dashboard/student", View: navigation.ViewStudentDashboard}},
		{"absent role on home", "/", sessions.Session{Principal: &users.User{ID: "u"}}, guard.Decision{Kind: guard.RedirectToDashboard, Path: "/", Target: "/dashboard/student", Role: "student"}},
		{"absent role on teacher dashboard", "/dashboard/teacher", sessions.Session{Principal: &users.User{ID: "u"}}, guard.Decision{Kind: guard.RedirectToAuth, Path: "/dashboard/teacher", Target: "/auth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, guard.Decide(tt.path, tt.session))
		})
	}
}

func TestDecideNeverDecidesWhileLoading(t *testing.T) {
	for _, path := range allPaths {
		for _, s := range []sessions.Session{sessions.Loading(), {IsLoading: true, Principal: &users.User{Role: users.RoleAdmin}}} {
			d := guard.Decide(path, s)
			require.Equal(t, guard.Pending, d.Kind, path)
			require.False(t, d.Redirect())
		}
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	roles := []users.RoleType{users.RoleStudent, users.RoleTeacher, users.RoleParent, users.RoleAdmin, ""}
	check := func(pathIdx, roleIdx uint8, loading, present bool) bool {
		path := allPaths[int(pathIdx)%len(allPaths)]
		s := sessions.Session{IsLoading: loading}
		if present {
			s.Principal = &users.User{ID: "u", Role: roles[int(roleIdx)%len(roles)]}
		}
		return guard.Decide(path, s) == guard.Decide(path, s)
	}
	require.NoError(t, quick.Check(check, nil))
}

func TestPrincipalsNeverSeeLandingPages(t *testing.T) {
	check := func(role string) bool {
		s := signedIn(users.RoleType(role))
		want := navigation.Resolve(s.Principal.RoleName())
		for _, path := range []string{"/", "/auth"} {
			d := guard.Decide(path, s)
			if d.Kind != guard.RedirectToDashboard || d.Target != want {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(check, nil))
}

func TestVisitorSignsInToParentDashboard(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	tokens, err := token.New("test-secret")
	require.NoError(t, err)
	backend, err := local.NewBackend(repo, tokens, mailerfake.NewFakeSender())
	require.NoError(t, err)
	_, _, err = backend.SeedUser(ctx, "pat@example.com", "abc123", users.RoleParent, "Pat Parent")
	require.NoError(t, err)

	store, writer := sessions.New()
	flow, err := auth.NewFlowController(backend.Client(nil), writer, "https://learn.example.com/auth/update-password")
	require.NoError(t, err)
	require.NoError(t, flow.Start(ctx))
	defer flow.Stop()

	require.Equal(t, guard.RedirectToAuth, guard.Decide("/dashboard/parent", store.Current()).Kind)

	var target string
	_, err = flow.SignIn(ctx, "pat@example.com", "abc123", func(p string) { target = p })
	require.NoError(t, err)
	require.Equal(t, "/dashboard/parent", target)

	d := guard.Decide("/dashboard/parent", store.Current())
	require.Equal(t, guard.Allow, d.Kind)
	require.Equal(t, navigation.ViewParentDashboard, d.View)
}
