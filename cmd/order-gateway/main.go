package main

import "context"

func main() {
	app := mustBootstrapGateway()
	defer app.Close()

	if err := app.Run(); err != nil && err != context.Canceled {
		panic(err)
	}
}
