// Package app wires the dashboard server together and manages its
// lifecycle: configuration, logging and telemetry, the session manager,
// the credential store, the services and the HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, the YAML file and DASH_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the session manager and credential store
//	4. Initialize services, loading the bundled default dataset if configured
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In
// flight requests are drained, the session janitor is stopped and
// telemetry is flushed. The package never calls os.Exit.
package app
