package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/access"
	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/metrics"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/ratelimit"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger checks connectivity to the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users         *user.Service
	Roles         *role.Service
	Organizations *organization.Service
	Missions      *mission.Service

	Gate      *access.Gate
	OrgPolicy *access.OrgManagerPolicy
	Tokens    *auth.Tokens
	Callers   auth.CallerLookup

	Limiter        *ratelimit.Limiter // nil disables auth rate limiting
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(m))

	g := &guards{gate: deps.Gate, orgPolicy: deps.OrgPolicy, metrics: m}

	r.Get("/health", healthHandler(deps.DB))
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	authH := newAuthHandler(deps.Users, deps.Tokens, m)
	users := newUsersHandler(deps.Users)
	roles := newRolesHandler(deps.Roles)
	orgs := newOrganizationsHandler(deps.Organizations)
	missions := newMissionsHandler(deps.Missions)
	assignments := newAssignmentsHandler(deps.Missions)
	tasks := newTasksHandler(deps.Missions)

	r.Route("/api", func(api chi.Router) {
		// Login and registration always run as Public.
		api.Group(func(pr chi.Router) {
			if deps.Limiter != nil {
				pr.Use(ratelimit.Middleware(deps.Limiter, m.IncRateLimitRejection))
			}
			pr.With(g.permit(role.ActionAuthCallback)).Post("/auth/local", authH.Login)
			pr.With(g.permit(role.ActionAuthRegister)).Post("/auth/local/register", authH.Register)
		})

		api.Group(func(ar chi.Router) {
			ar.Use(auth.Middleware(deps.Tokens, deps.Callers, m.IncAuthFailure))

			ar.With(adminOnly).Get("/admin/metrics", m.Handler())

			ar.With(auth.RequireCaller, g.permit(role.ActionUserMe)).Get("/users/me", users.Me)
			ar.With(g.permit(role.ActionUserFind)).Get("/users", users.List)
			ar.With(g.permit(role.ActionUserFindOne)).Get("/users/{id}", users.Get)
			ar.With(g.permit(role.ActionUserUpdate)).Put("/users/{id}", users.Update)

			ar.With(g.permit(role.ActionRoleFind)).Get("/roles", roles.List)

			ar.Route("/organizations", func(or chi.Router) {
				or.With(g.permit(role.ActionOrganizationFind)).Get("/", orgs.List)
				or.With(g.permit(role.ActionOrganizationCreate)).Post("/", orgs.Create)
				or.With(g.permit(role.ActionOrganizationFindOne)).Get("/{id}", orgs.Get)
				or.With(g.permit(role.ActionOrganizationUpdate)).Put("/{id}", orgs.Update)
				or.With(g.permit(role.ActionOrganizationDelete)).Delete("/{id}", orgs.Delete)

				or.With(g.permit(role.ActionOrganizationGetMembers), g.orgManager).Get("/{id}/members", orgs.Members)
				or.With(g.permit(role.ActionOrganizationAddMember), g.orgManager).Post("/{id}/members", orgs.AddMember)
				or.With(g.permit(role.ActionOrganizationUpdateMember), g.orgManager).Put("/{id}/members/{userId}", orgs.UpdateMember)
				or.With(g.permit(role.ActionOrganizationRemoveMember), g.orgManager).Delete("/{id}/members/{userId}", orgs.RemoveMember)
			})

			ar.Route("/missions", func(mr chi.Router) {
				mr.With(g.permit(role.ActionMissionFind)).Get("/", missions.List)
				mr.With(g.permit(role.ActionMissionCreate)).Post("/", missions.Create)
				mr.With(g.permit(role.ActionMissionFindOne)).Get("/{id}", missions.Get)
				mr.With(g.permit(role.ActionMissionUpdate)).Put("/{id}", missions.Update)
				mr.With(g.permit(role.ActionMissionDelete)).Delete("/{id}", missions.Delete)

				mr.With(g.permit(role.ActionMissionAssignUser), g.adminOrManager).Post("/{id}/assign", missions.Assign)
				mr.With(auth.RequireCaller, g.permit(role.ActionMissionGetParticipants)).Get("/{id}/participants", missions.Participants)
				mr.With(g.permit(role.ActionMissionRemoveParticipant), g.adminOrManager).Delete("/{id}/participants/{userId}", missions.RemoveParticipant)
				mr.With(g.permit(role.ActionMissionAssignOrganization), g.adminOrManager).Post("/{id}/assign-organization", missions.AssignOrganization)
			})

			ar.Route("/mission-users", func(ur chi.Router) {
				ur.With(g.permit(role.ActionMissionUserFind)).Get("/", assignments.List)
				ur.With(g.permit(role.ActionMissionUserCreate)).Post("/", assignments.Create)
				ur.With(g.permit(role.ActionMissionUserFindOne)).Get("/{id}", assignments.Get)
				ur.With(g.permit(role.ActionMissionUserUpdate)).Put("/{id}", assignments.Update)
				ur.With(g.permit(role.ActionMissionUserDelete)).Delete("/{id}", assignments.Delete)
			})

			ar.Route("/tasks", func(tr chi.Router) {
				tr.With(g.permit(role.ActionTaskFind)).Get("/", tasks.List)
				tr.With(g.permit(role.ActionTaskCreate)).Post("/", tasks.Create)
				tr.With(g.permit(role.ActionTaskFindOne)).Get("/{id}", tasks.Get)
				tr.With(g.permit(role.ActionTaskUpdate)).Put("/{id}", tasks.Update)
				tr.With(g.permit(role.ActionTaskDelete)).Delete("/{id}", tasks.Delete)
			})
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":   "degraded",
					"database": "unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "connected",
		})
	}
}
