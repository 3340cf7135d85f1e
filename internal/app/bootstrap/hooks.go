package bootstrap

import "github.com/dalemusser/waffle/app"

// Hooks is the storefront lifecycle, run in field order by app.Run:
// config is loaded and validated, Mongo is dialled, collections and indexes
// are ensured, background workers start, and the router is built. Shutdown
// stops the workers and disconnects Mongo.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "storefront",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
