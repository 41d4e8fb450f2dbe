// Package bootstrap runs the application's launch sequence: an ordered,
// run-once list of initialization steps that must succeed (or explicitly
// fail) before control returns to the host.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown(ctx)
//
//	result := app.Launch(ctx, host.NewLaunchContext(nil, nil))
//	if !result.Ready() {
//	    log.Fatal(result.Err)
//	}
package bootstrap
