// Package http implements the HTTP handlers of the dashboard API.
// Handlers are a thin layer over the services package: they parse and
// validate the request, call a service and render the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Responses
//
// Successful responses use a common envelope:
//
//	{"status": "success", "data": {...}}
//
// Errors are RFC 7807 problem details written by the errors package:
//
//	{
//	    "type": "/errors/data/column-not-found",
//	    "title": "Column Not Found",
//	    "status": 400,
//	    "detail": "column not found: \"revenue\"",
//	    "instance": "/api/datasets/first/charts"
//	}
//
// # Filters
//
// Dataset read endpoints accept the dashboard filter selection as query
// parameters:
//
//	q=north                     free-text search across all cells
//	from=2024-01-01&to=...      date range on the first date column
//	top_column=sales&top_n=5    keep the n largest rows of a column
//	filter.region=North,South   keep rows whose column value is listed
//
// # Sessions
//
// Every /api request carries a session resolved by the session middleware.
// Routes that touch datasets additionally require a login and a role
// permission (read, upload, download or manage_users).
package http
