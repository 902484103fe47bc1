// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the data packages so that handlers
// only translate requests and responses.
//
// # Services
//
//	- DashboardService: uploads, filtered grids, summary cards, charts,
//	  correlation, export and dataset comparison for one session
//	- AuthService: sign-up, login, logout and role administration
//	- HealthService: liveness, readiness and version information
//
// # Dependencies
//
// Services depend on small interfaces (SessionStore, UserStore) rather than
// concrete stores so tests can substitute fakes:
//
//	svc := services.NewDashboardService(sessionManager, fileValidator,
//	    chartFactory, metrics, services.DashboardConfig{}, logger)
//
// # Errors
//
// Service errors are sentinels declared in errors.go. Errors from the domain,
// the credential store and the session package are returned wrapped so the
// HTTP layer can map them with errors.Is.
package services
