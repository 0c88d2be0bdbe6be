package main

import "github.com/edibleworks/gift-concierge/internal/app"

func main() {
	err := app.NewConciergeApp().Run()
	if err != nil {
		panic(err)
	}
}
