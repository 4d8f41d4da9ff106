package main

import "scipedia/internal/app"

func main() {
	app.Run()
}
