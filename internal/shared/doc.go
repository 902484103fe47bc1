// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a capturing slog handler and dataset
// fixtures for tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewDashboardService(..., logger)
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset uploaded")
package shared
