// Package handlers contains reusable pieces of the HTTP API that do not depend
// on the portal's application layer: the composite health checker and a few
// gin middlewares.
//
// # Health Checks
//
// Checks run in parallel, each under its own timeout. A failing required
// check makes the service unready; a failing optional check only marks it
// degraded:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(store))
//	checker.AddOptionalCheck("redis", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Middleware
//
//	router.Use(handlers.SecurityHeaders(), handlers.RequestSizeLimit(1<<20))
//	api.GET("/industries", handlers.CacheControl(time.Hour, false), listIndustries)
package handlers
