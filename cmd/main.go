package main

import "github.com/aididalam/tasktrack/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()

	app.ConnectRedis()
	defer app.DisconnectRedis()

	app.MustListenAndServeHTTP()
}
